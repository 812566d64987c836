package scheduler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"audithub/internal/config"
	"audithub/internal/email"
	"audithub/internal/models"
	"audithub/internal/repository"
	"audithub/internal/service"
)

// Scheduler handles periodic tasks
type Scheduler struct {
	auditRepo    *repository.AuditRepository
	userRepo     *repository.UserRepository
	emailService *email.Service
	config       *config.SchedulerConfig
	stopChan     chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(
	auditRepo *repository.AuditRepository,
	userRepo *repository.UserRepository,
	emailService *email.Service,
	cfg *config.SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		auditRepo:    auditRepo,
		userRepo:     userRepo,
		emailService: emailService,
		config:       cfg,
		stopChan:     make(chan bool),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"stale_reminders_enabled", s.config.EnableStaleReminders,
		"due_reminders_enabled", s.config.EnableDueReminders)

	if s.config.EnableStaleReminders {
		if err := s.startCronTask(s.config.StaleReminderCron, "stale_reminders", s.sendStaleReminders); err != nil {
			slog.Error("Failed to start stale reminders", "error", err)
		}
	}

	if s.config.EnableDueReminders {
		if err := s.startCronTask(s.config.DueReminderCron, "due_reminders", s.sendDueReminders); err != nil {
			slog.Error("Failed to start due reminders", "error", err)
		}
	}

	slog.Info("Scheduler started")
}

// startCronTask parses a cron expression and starts the task
// Supports simple cron format: "minute hour day month weekday"
// Examples: "0 9 * * 1" = Monday 9 AM, "0 8 * * *" = Daily 8 AM, "*/5 * * * *" = Every 5 minutes
func (s *Scheduler) startCronTask(cronExpr, taskName string, task func()) error {
	parts := strings.Fields(cronExpr)
	if len(parts) != 5 {
		return fmt.Errorf("invalid cron expression: %s (expected 5 fields)", cronExpr)
	}

	// Parse minute field (supports */n for intervals)
	if strings.HasPrefix(parts[0], "*/") {
		// Interval notation: */5 = every 5 minutes
		interval, err := strconv.Atoi(parts[0][2:])
		if err != nil || interval < 1 || interval > 59 {
			return fmt.Errorf("invalid minute interval in cron: %s", parts[0])
		}
		// For interval tasks, run immediately
		go s.scheduleIntervalTask(time.Duration(interval)*time.Minute, taskName, task)
		return nil
	}

	minute, err := strconv.Atoi(parts[0])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in cron: %s", parts[0])
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in cron: %s", parts[1])
	}

	// Check if daily or weekly
	if parts[4] == "*" {
		// Daily task
		go s.scheduleDailyTask(hour, minute, taskName, task)
	} else {
		// Weekly task
		weekday, err := strconv.Atoi(parts[4])
		if err != nil || weekday < 0 || weekday > 6 {
			return fmt.Errorf("invalid weekday in cron: %s (0-6, 0=Sunday)", parts[4])
		}
		go s.scheduleWeeklyTask(time.Weekday(weekday), hour, minute, taskName, task)
	}

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	close(s.stopChan)
}

// scheduleIntervalTask runs a task at regular intervals
func (s *Scheduler) scheduleIntervalTask(interval time.Duration, taskName string, task func()) {
	slog.Info("Starting interval task", "task", taskName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	slog.Info("Running interval task", "task", taskName)
	task()

	for {
		select {
		case <-ticker.C:
			slog.Info("Running interval task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// scheduleWeeklyTask runs a task weekly on a specific weekday and time
func (s *Scheduler) scheduleWeeklyTask(weekday time.Weekday, hour, minute int, taskName string, task func()) {
	for {
		now := time.Now()
		next := s.nextWeekday(now, weekday, hour, minute)
		duration := next.Sub(now)

		slog.Info("Next weekly task scheduled", "task", taskName, "next_run", next.Format("2006-01-02 15:04:05"))

		select {
		case <-time.After(duration):
			slog.Info("Running weekly task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// scheduleDailyTask runs a task daily at a specific time
func (s *Scheduler) scheduleDailyTask(hour, minute int, taskName string, task func()) {
	for {
		now := time.Now()
		next := s.nextDailyRun(now, hour, minute)
		duration := next.Sub(now)

		slog.Info("Next daily task scheduled", "task", taskName, "next_run", next.Format("2006-01-02 15:04:05"))

		select {
		case <-time.After(duration):
			slog.Info("Running daily task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// nextWeekday calculates the next occurrence of a specific weekday and time
func (s *Scheduler) nextWeekday(from time.Time, weekday time.Weekday, hour, minute int) time.Time {
	// Start with today at the specified time
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	// Calculate days until target weekday
	daysUntil := int(weekday - from.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}

	next = next.AddDate(0, 0, daysUntil)

	// If the calculated time has already passed today, add 7 days
	if next.Before(from) || next.Equal(from) {
		next = next.AddDate(0, 0, 7)
	}

	return next
}

// nextDailyRun calculates the next daily run time
func (s *Scheduler) nextDailyRun(from time.Time, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	// If the time has already passed today, schedule for tomorrow
	if next.Before(from) || next.Equal(from) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// sendStaleReminders reminds assignees about audits with no recent activity
func (s *Scheduler) sendStaleReminders() {
	slog.Info("Sending stale audit reminders")

	cutoff := time.Now().AddDate(0, 0, -s.config.StaleAfterDays)
	audits, err := s.auditRepo.GetStale([]string{service.StatusDraft, service.StatusInProgress}, cutoff)
	if err != nil {
		slog.Error("Failed to get stale audits", "error", err)
		return
	}

	now := time.Now()
	remindersSent := 0
	for _, audit := range audits {
		recipient := s.reminderRecipient(&audit)
		if recipient == nil {
			continue
		}

		userName := fmt.Sprintf("%s %s", recipient.FirstName, recipient.LastName)
		daysStale := int(now.Sub(audit.UpdatedAt).Hours() / 24)

		if err := s.emailService.SendStaleAuditReminder(recipient.Email, userName, audit.Name, int(audit.ID), daysStale); err != nil {
			slog.Error("Failed to send stale reminder",
				"audit_id", audit.ID,
				"user_email", recipient.Email,
				"error", err,
			)
			continue
		}

		remindersSent++
		slog.Info("Stale reminder sent",
			"audit_id", audit.ID,
			"user_email", recipient.Email,
			"days_stale", daysStale,
		)
	}

	slog.Info("Stale reminders completed", "reminders_sent", remindersSent)
}

// sendDueReminders warns assignees about audits approaching their due date
func (s *Scheduler) sendDueReminders() {
	slog.Info("Sending due date reminders")

	deadline := time.Now().AddDate(0, 0, s.config.DueWithinDays)
	audits, err := s.auditRepo.GetDueSoon(deadline)
	if err != nil {
		slog.Error("Failed to get due audits", "error", err)
		return
	}

	remindersSent := 0
	for _, audit := range audits {
		recipient := s.reminderRecipient(&audit)
		if recipient == nil || audit.DueDate == nil {
			continue
		}

		userName := fmt.Sprintf("%s %s", recipient.FirstName, recipient.LastName)
		dueDate := audit.DueDate.Format("2006-01-02")

		if err := s.emailService.SendAuditDueReminder(recipient.Email, userName, audit.Name, dueDate, audit.ID); err != nil {
			slog.Error("Failed to send due reminder",
				"audit_id", audit.ID,
				"user_email", recipient.Email,
				"error", err,
			)
			continue
		}

		remindersSent++
		slog.Info("Due reminder sent",
			"audit_id", audit.ID,
			"user_email", recipient.Email,
			"due_date", dueDate,
		)
	}

	slog.Info("Due reminders completed", "reminders_sent", remindersSent)
}

// reminderRecipient resolves who gets a reminder: the assignee if set,
// otherwise the creator
func (s *Scheduler) reminderRecipient(audit *models.AuditWithDetails) *models.User {
	userID := audit.CreatedBy
	if audit.AssignedTo != nil {
		userID = *audit.AssignedTo
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil || user == nil || user.Email == "" {
		slog.Error("Failed to resolve reminder recipient", "audit_id", audit.ID, "user_id", userID, "error", err)
		return nil
	}
	return user
}
