package service_test

import (
	"errors"
	"testing"

	"audithub/internal/models"
	"audithub/internal/repository"
	"audithub/internal/scoring"
	"audithub/internal/service"
	"audithub/internal/testutil"
)

type testEnv struct {
	fixtures   *testutil.Fixtures
	audits     *service.AuditService
	comparison *service.ComparisonService
	dashboard  *service.DashboardService

	answerRepo         *repository.AnswerRepository
	sectionScoreRepo   *repository.SectionScoreRepository
	recommendationRepo *repository.RecommendationRepository
}

func setupEnv(t *testing.T) (*testutil.TestContainers, *testEnv) {
	t.Helper()

	containers := testutil.SetupTestContainers(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	auditRepo := repository.NewAuditRepository(containers.DB)
	templateRepo := repository.NewTemplateRepository(containers.DB)
	answerRepo := repository.NewAnswerRepository(containers.DB)
	sectionScoreRepo := repository.NewSectionScoreRepository(containers.DB)
	recommendationRepo := repository.NewRecommendationRepository(containers.DB)
	orgUnitRepo := repository.NewOrgUnitRepository(containers.DB)
	userRepo := repository.NewUserRepository(containers.DB)

	env := &testEnv{
		fixtures: fixtures,
		audits: service.NewAuditService(
			auditRepo, templateRepo, answerRepo, sectionScoreRepo,
			recommendationRepo, orgUnitRepo, userRepo, scoring.NewEngine(),
		),
		comparison:         service.NewComparisonService(auditRepo, templateRepo, sectionScoreRepo),
		dashboard:          service.NewDashboardService(auditRepo, recommendationRepo),
		answerRepo:         answerRepo,
		sectionScoreRepo:   sectionScoreRepo,
		recommendationRepo: recommendationRepo,
	}
	return containers, env
}

// answerAll submits an answer for every fixture question through the
// service, picking a value that matches the question's answer type.
func answerAll(t *testing.T, env *testEnv, auditID, userID uint, yesNoValue, scaleValue string) {
	t.Helper()

	for _, question := range env.fixtures.Questions {
		value := yesNoValue
		if question.AnswerType == scoring.AnswerTypeScale {
			value = scaleValue
		}
		_, err := env.audits.SubmitAnswer(auditID, env.fixtures.Organization.ID, userID, false, question.ID, value, nil, nil)
		if err != nil {
			t.Fatalf("Failed to answer question %d: %v", question.ID, err)
		}
	}
}

func TestAuditLifecycle(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	orgID := env.fixtures.Organization.ID
	employee := env.fixtures.EmployeeUser.ID

	audit, err := env.audits.Create(orgID, employee, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Q3 Security Audit",
	})
	if err != nil {
		t.Fatalf("Failed to create audit: %v", err)
	}
	if audit.Status != service.StatusDraft {
		t.Fatalf("Expected new audit in draft, got %s", audit.Status)
	}

	// Answering a draft audit starts it implicitly
	answerAll(t, env, audit.ID, employee, "yes", "5")

	updated, err := env.audits.Get(audit.ID, orgID, employee, false)
	if err != nil {
		t.Fatalf("Failed to load audit: %v", err)
	}
	if updated.Status != service.StatusInProgress {
		t.Errorf("Expected in_progress after first answer, got %s", updated.Status)
	}

	completed, err := env.audits.Complete(audit.ID, orgID, employee, false)
	if err != nil {
		t.Fatalf("Failed to complete audit: %v", err)
	}
	if completed.Status != service.StatusCompleted {
		t.Errorf("Expected completed, got %s", completed.Status)
	}
	if completed.Score == nil || *completed.Score != 100.0 {
		t.Errorf("Expected frozen score 100.0, got %v", completed.Score)
	}

	scores, err := env.sectionScoreRepo.GetByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to load section scores: %v", err)
	}
	if len(scores) != len(env.fixtures.Sections) {
		t.Errorf("Expected %d frozen section scores, got %d", len(env.fixtures.Sections), len(scores))
	}
	for _, sec := range scores {
		if sec.Percentage != 100.0 {
			t.Errorf("Section %s: expected 100.0, got %v", sec.SectionName, sec.Percentage)
		}
	}

	recs, err := env.recommendationRepo.GetByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to load recommendations: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no recommendations for a perfect audit, got %d", len(recs))
	}

	results, err := env.audits.GetResults(audit.ID, orgID, employee, false)
	if err != nil {
		t.Fatalf("Failed to load results: %v", err)
	}
	if results.OverallScore != 100.0 {
		t.Errorf("Expected results score 100.0, got %v", results.OverallScore)
	}

	// Owner review and unreview round trip
	reviewed, err := env.audits.Review(audit.ID, orgID)
	if err != nil {
		t.Fatalf("Failed to review audit: %v", err)
	}
	if reviewed.Status != service.StatusReviewed {
		t.Errorf("Expected reviewed, got %s", reviewed.Status)
	}
	unreviewed, err := env.audits.Unreview(audit.ID, orgID)
	if err != nil {
		t.Fatalf("Failed to unreview audit: %v", err)
	}
	if unreviewed.Status != service.StatusCompleted {
		t.Errorf("Expected completed after unreview, got %s", unreviewed.Status)
	}
}

func TestCompleteRequiresAllAnswers(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	orgID := env.fixtures.Organization.ID
	employee := env.fixtures.EmployeeUser.ID

	audit, err := env.audits.Create(orgID, employee, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Partially Answered Audit",
	})
	if err != nil {
		t.Fatalf("Failed to create audit: %v", err)
	}

	first := env.fixtures.Questions[0]
	if _, err := env.audits.SubmitAnswer(audit.ID, orgID, employee, false, first.ID, "yes", nil, nil); err != nil {
		t.Fatalf("Failed to answer question: %v", err)
	}

	_, err = env.audits.Complete(audit.ID, orgID, employee, false)
	if !errors.Is(err, service.ErrAuditIncomplete) {
		t.Errorf("Expected ErrAuditIncomplete, got %v", err)
	}
}

func TestReopenDiscardsDerivedState(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	orgID := env.fixtures.Organization.ID
	employee := env.fixtures.EmployeeUser.ID

	audit, err := env.audits.Create(orgID, employee, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Failed Audit",
	})
	if err != nil {
		t.Fatalf("Failed to create audit: %v", err)
	}

	answerAll(t, env, audit.ID, employee, "no", "1")

	completed, err := env.audits.Complete(audit.ID, orgID, employee, false)
	if err != nil {
		t.Fatalf("Failed to complete audit: %v", err)
	}
	if completed.Score == nil || *completed.Score != 10.0 {
		t.Errorf("Expected frozen score 10.0, got %v", completed.Score)
	}

	recs, err := env.recommendationRepo.GetByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to load recommendations: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("Expected recommendations for a failing audit")
	}
	var hasCritical bool
	for _, rec := range recs {
		if rec.Priority == "critical" {
			hasCritical = true
		}
	}
	if !hasCritical {
		t.Error("Expected a critical recommendation for sections below 50%")
	}

	reopened, err := env.audits.Reopen(audit.ID, orgID, employee, false)
	if err != nil {
		t.Fatalf("Failed to reopen audit: %v", err)
	}
	if reopened.Status != service.StatusInProgress {
		t.Errorf("Expected in_progress after reopen, got %s", reopened.Status)
	}
	if reopened.Score != nil {
		t.Errorf("Expected score cleared after reopen, got %v", *reopened.Score)
	}

	scores, err := env.sectionScoreRepo.GetByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to load section scores: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("Expected section scores discarded after reopen, got %d", len(scores))
	}
	recs, err = env.recommendationRepo.GetByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to load recommendations: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected recommendations discarded after reopen, got %d", len(recs))
	}

	// Answers survive a reopen
	count, err := env.answerRepo.CountByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to count answers: %v", err)
	}
	if count != len(env.fixtures.Questions) {
		t.Errorf("Expected %d answers kept after reopen, got %d", len(env.fixtures.Questions), count)
	}
}

func TestStaleRevisionRejected(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	orgID := env.fixtures.Organization.ID
	employee := env.fixtures.EmployeeUser.ID

	audit, err := env.audits.Create(orgID, employee, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Concurrent Edit Audit",
	})
	if err != nil {
		t.Fatalf("Failed to create audit: %v", err)
	}

	question := env.fixtures.Questions[0]
	if _, err := env.audits.SubmitAnswer(audit.ID, orgID, employee, false, question.ID, "yes", nil, nil); err != nil {
		t.Fatalf("Failed to submit first answer: %v", err)
	}

	stale := 5
	_, err = env.audits.SubmitAnswer(audit.ID, orgID, employee, false, question.ID, "no", nil, &stale)
	if !errors.Is(err, service.ErrStaleRevision) {
		t.Errorf("Expected ErrStaleRevision for mismatched revision, got %v", err)
	}

	current := 1
	answer, err := env.audits.SubmitAnswer(audit.ID, orgID, employee, false, question.ID, "no", nil, &current)
	if err != nil {
		t.Fatalf("Expected matching revision to succeed, got %v", err)
	}
	if answer.Revision != 2 {
		t.Errorf("Expected revision bumped to 2, got %d", answer.Revision)
	}
}

func TestSubmitAnswerCommentOptional(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	orgID := env.fixtures.Organization.ID
	employee := env.fixtures.EmployeeUser.ID

	audit, err := env.audits.Create(orgID, employee, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Comment Optional Audit",
	})
	if err != nil {
		t.Fatalf("Failed to create audit: %v", err)
	}

	question := env.fixtures.Questions[0]

	// Omitting the comment is the normal case and must persist cleanly
	if _, err := env.audits.SubmitAnswer(audit.ID, orgID, employee, false, question.ID, "yes", nil, nil); err != nil {
		t.Fatalf("Expected answer without comment to succeed, got %v", err)
	}

	answers, err := env.answerRepo.GetByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to load answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("Expected 1 answer, got %d", len(answers))
	}
	if answers[0].Comment != nil && *answers[0].Comment != "" {
		t.Errorf("Expected empty comment, got %q", *answers[0].Comment)
	}

	// Overwriting without a comment must also work, then a comment sticks
	if _, err := env.audits.SubmitAnswer(audit.ID, orgID, employee, false, question.ID, "no", nil, nil); err != nil {
		t.Fatalf("Expected overwrite without comment to succeed, got %v", err)
	}
	comment := "MFA rollout is scheduled for next quarter"
	if _, err := env.audits.SubmitAnswer(audit.ID, orgID, employee, false, question.ID, "no", &comment, nil); err != nil {
		t.Fatalf("Expected answer with comment to succeed, got %v", err)
	}
	answers, err = env.answerRepo.GetByAudit(audit.ID)
	if err != nil {
		t.Fatalf("Failed to load answers: %v", err)
	}
	if answers[0].Comment == nil || *answers[0].Comment != comment {
		t.Errorf("Expected comment %q, got %v", comment, answers[0].Comment)
	}
}

func TestCrossOrganizationAccessDenied(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	employee := env.fixtures.EmployeeUser.ID
	audit, err := env.audits.Create(env.fixtures.Organization.ID, employee, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Tenant Scoped Audit",
	})
	if err != nil {
		t.Fatalf("Failed to create audit: %v", err)
	}

	var otherOrgID uint
	err = containers.DB.QueryRow(`
		INSERT INTO organizations (name, slug) VALUES ('Other Org', 'other-org') RETURNING id
	`).Scan(&otherOrgID)
	if err != nil {
		t.Fatalf("Failed to create second organization: %v", err)
	}

	// Even an owner of another organization must not see the audit
	_, err = env.audits.Get(audit.ID, otherOrgID, employee, true)
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Expected ErrNotFound across organizations, got %v", err)
	}
}

func TestDashboardScopedToVisibility(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	orgID := env.fixtures.Organization.ID
	owner := env.fixtures.OwnerUser.ID
	employee := env.fixtures.EmployeeUser.ID

	if _, err := env.audits.Create(orgID, owner, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Owner Only Audit",
	}); err != nil {
		t.Fatalf("Failed to create owner audit: %v", err)
	}

	mine, err := env.audits.Create(orgID, employee, service.CreateAuditInput{
		TemplateID: env.fixtures.Template.ID,
		Name:       "Employee Audit",
	})
	if err != nil {
		t.Fatalf("Failed to create employee audit: %v", err)
	}
	answerAll(t, env, mine.ID, employee, "yes", "5")
	if _, err := env.audits.Complete(mine.ID, orgID, employee, false); err != nil {
		t.Fatalf("Failed to complete employee audit: %v", err)
	}

	ownerStats, err := env.dashboard.GetStats(orgID, owner, true)
	if err != nil {
		t.Fatalf("Failed to load owner stats: %v", err)
	}
	if ownerStats.TotalAudits != 2 {
		t.Errorf("Expected owner to see 2 audits, got %d", ownerStats.TotalAudits)
	}

	employeeStats, err := env.dashboard.GetStats(orgID, employee, false)
	if err != nil {
		t.Fatalf("Failed to load employee stats: %v", err)
	}
	if employeeStats.TotalAudits != 1 {
		t.Errorf("Expected employee to see only their audit, got %d", employeeStats.TotalAudits)
	}
	if employeeStats.AverageScore == nil || *employeeStats.AverageScore != 100.0 {
		t.Errorf("Expected employee average 100.0 from their own audit, got %v", employeeStats.AverageScore)
	}
	if len(employeeStats.RecentAudits) != 1 || employeeStats.RecentAudits[0].ID != mine.ID {
		t.Errorf("Expected recent audits limited to the employee's own, got %d entries", len(employeeStats.RecentAudits))
	}

	// Fixture audits have no org unit, so the level breakdown buckets
	// them as unassigned
	if len(employeeStats.ByLevel) != 1 || employeeStats.ByLevel[0].Level != "unassigned" || employeeStats.ByLevel[0].Count != 1 {
		t.Errorf("Expected employee level breakdown [unassigned:1], got %v", employeeStats.ByLevel)
	}
	if len(ownerStats.ByLevel) != 1 || ownerStats.ByLevel[0].Count != 2 {
		t.Errorf("Expected owner level breakdown [unassigned:2], got %v", ownerStats.ByLevel)
	}
}

func TestCompareRanksAudits(t *testing.T) {
	containers, env := setupEnv(t)
	defer containers.Cleanup(t)

	orgID := env.fixtures.Organization.ID
	employee := env.fixtures.EmployeeUser.ID

	createCompleted := func(name, yesNoValue, scaleValue string) *models.Audit {
		audit, err := env.audits.Create(orgID, employee, service.CreateAuditInput{
			TemplateID: env.fixtures.Template.ID,
			Name:       name,
		})
		if err != nil {
			t.Fatalf("Failed to create audit %s: %v", name, err)
		}
		answerAll(t, env, audit.ID, employee, yesNoValue, scaleValue)
		completed, err := env.audits.Complete(audit.ID, orgID, employee, false)
		if err != nil {
			t.Fatalf("Failed to complete audit %s: %v", name, err)
		}
		return completed
	}

	strong := createCompleted("Strong Audit", "yes", "5")
	weak := createCompleted("Weak Audit", "no", "1")

	result, err := env.comparison.Compare(orgID, []uint{weak.ID, strong.ID})
	if err != nil {
		t.Fatalf("Failed to compare audits: %v", err)
	}

	if len(result.Entries) != 2 {
		t.Fatalf("Expected 2 ranked audits, got %d", len(result.Entries))
	}
	// Entries come back ranked by score descending
	if result.Entries[0].AuditID != strong.ID || result.Entries[0].Rank != 1 {
		t.Errorf("Expected strong audit ranked first, got audit %d rank %d", result.Entries[0].AuditID, result.Entries[0].Rank)
	}
	if result.Entries[1].AuditID != weak.ID || result.Entries[1].Rank != 2 {
		t.Errorf("Expected weak audit ranked second, got audit %d rank %d", result.Entries[1].AuditID, result.Entries[1].Rank)
	}
	if result.Best.AuditID != strong.ID {
		t.Errorf("Expected best audit %d, got %d", strong.ID, result.Best.AuditID)
	}
	if result.Worst.AuditID != weak.ID {
		t.Errorf("Expected worst audit %d, got %d", weak.ID, result.Worst.AuditID)
	}
	if result.AverageScore != 55.0 {
		t.Errorf("Expected average score 55.0, got %v", result.AverageScore)
	}
	if len(result.Sections) != len(env.fixtures.Sections) {
		t.Errorf("Expected %d section rows, got %d", len(env.fixtures.Sections), len(result.Sections))
	}
	// Matrix columns follow the caller's audit order, not rank order
	for _, row := range result.Sections {
		if len(row.Scores) != 2 {
			t.Fatalf("Section %s: expected 2 score columns, got %d", row.SectionName, len(row.Scores))
		}
		if row.Scores[0] != 10.0 || row.Scores[1] != 100.0 {
			t.Errorf("Section %s: expected columns [10.0 100.0] in caller order, got %v", row.SectionName, row.Scores)
		}
	}
}
