package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"reminder-engine/internal/config"
	"reminder-engine/internal/domain/reminder"
	"reminder-engine/internal/event"
	"reminder-engine/internal/infrastructure/monitoring"
	"reminder-engine/internal/pkg/apperrors"
	"reminder-engine/internal/transport/whatsapp"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type RunOutcome string

const (
	OutcomeCompleted RunOutcome = "completed"
	OutcomeSkipped   RunOutcome = "skipped"
	OutcomeAborted   RunOutcome = "aborted"
)

// SkipReason classifies the expected, non-error ways a run ends early.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipAlreadyRunning SkipReason = "already_running"
	SkipTransportDown  SkipReason = "transport_unavailable"
	SkipTenantUnknown  SkipReason = "tenant_unknown"
	SkipTenantDisabled SkipReason = "tenant_disabled"
	SkipOutsideHours   SkipReason = "outside_hours"
)

// RunResult is the typed outcome of one engine invocation. Skips are not
// errors: a disabled tenant or a closed operating window ends the run as
// a logged no-op, and only infrastructure failures surface as error.
type RunResult struct {
	RunID          string
	Outcome        RunOutcome
	Skip           SkipReason
	LocksReclaimed int64
	Eligible       int
	Groups         int
	Sent           int
	Errors         int
	SkippedGroups  int
	Duration       time.Duration
}

// ReminderJob is the reminder batch dispatch engine. One instance per
// process; the cron trigger and the manual trigger share it, and the
// in-process guard keeps their invocations from overlapping. Two separate
// processes racing each other are handled by the per-credit conditional
// lock in the repository, not by this guard.
type ReminderJob struct {
	repo      reminder.Repository
	sender    whatsapp.Sender
	publisher event.Publisher
	composer  *reminder.Composer
	cfg       config.ReminderConfig
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time
	limiter   *rate.Limiter
	running   atomic.Bool
}

// NewReminderJob wires the engine. publisher may be nil when eventing is
// disabled.
func NewReminderJob(
	repo reminder.Repository,
	sender whatsapp.Sender,
	publisher event.Publisher,
	composer *reminder.Composer,
	cfg config.ReminderConfig,
	loc *time.Location,
	logger *slog.Logger,
) *ReminderJob {
	if repo == nil || sender == nil || composer == nil || loc == nil || logger == nil {
		panic("ReminderJob dependencies cannot be nil")
	}
	return &ReminderJob{
		repo:      repo,
		sender:    sender,
		publisher: publisher,
		composer:  composer,
		cfg:       cfg,
		loc:       loc,
		logger:    logger.With("job", "ReminderDispatch"),
		now:       time.Now,
		limiter:   rate.NewLimiter(rate.Every(cfg.SendDelay), 1),
	}
}

// Running reports whether a run is currently in progress.
func (j *ReminderJob) Running() bool {
	return j.running.Load()
}

// Run executes one full dispatch cycle: guard, transport check, tenant
// enablement, orphan lock reclaim, operating hours, eligibility, policy
// filter, grouping, then the capped and throttled send loop.
func (j *ReminderJob) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString(), Outcome: OutcomeSkipped}

	if !j.running.CompareAndSwap(false, true) {
		res.Skip = SkipAlreadyRunning
		j.logger.InfoContext(ctx, "Run skipped: another run is in progress.")
		return res, nil
	}
	defer j.running.Store(false)

	startTime := time.Now()
	logger := j.logger.With(slog.String("run_id", res.RunID), slog.Int64("tenant_id", j.cfg.TenantID))
	logger.InfoContext(ctx, "Starting reminder dispatch run.")

	err := j.run(ctx, logger, res)

	res.Duration = time.Since(startTime)
	outcome := string(res.Outcome)
	if res.Outcome == OutcomeSkipped {
		outcome = string(res.Skip)
	}
	monitoring.RecordRun(outcome, res.Duration)

	summary := logger.With(
		slog.String("outcome", outcome),
		slog.Duration("duration", res.Duration),
		slog.Int64("locks_reclaimed", res.LocksReclaimed),
		slog.Int("eligible", res.Eligible),
		slog.Int("groups", res.Groups),
		slog.Int("sent", res.Sent),
		slog.Int("errors", res.Errors),
		slog.Int("groups_skipped", res.SkippedGroups),
	)
	switch {
	case err != nil:
		summary.ErrorContext(ctx, "Reminder dispatch run aborted.", slog.Any("error", err))
	case res.Errors > 0:
		summary.WarnContext(ctx, "Reminder dispatch run finished with errors.")
	default:
		summary.InfoContext(ctx, "Reminder dispatch run finished.")
	}
	return res, err
}

func (j *ReminderJob) run(ctx context.Context, logger *slog.Logger, res *RunResult) error {
	if !j.sender.IsAvailable(ctx) {
		res.Skip = SkipTransportDown
		logger.InfoContext(ctx, "Run skipped: messaging transport unavailable.")
		return nil
	}

	now := j.now().In(j.loc)

	tenant, err := j.repo.GetTenant(ctx, j.cfg.TenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			res.Skip = SkipTenantUnknown
			logger.WarnContext(ctx, "Run skipped: tenant not found.")
			return nil
		}
		res.Outcome = OutcomeAborted
		return fmt.Errorf("cannot run job, failed to load tenant: %w", err)
	}
	if !tenant.ReminderEnabled {
		res.Skip = SkipTenantDisabled
		logger.InfoContext(ctx, "Run skipped: reminders disabled for tenant.")
		return nil
	}

	// Reclaim before anything else so a crashed prior run cannot block
	// credits past the day its locks were meant to cover.
	reclaimed, err := j.repo.ReclaimOrphanLocks(ctx, tenant.ID, now)
	if err != nil {
		res.Outcome = OutcomeAborted
		return fmt.Errorf("cannot run job, failed to reclaim orphan locks: %w", err)
	}
	res.LocksReclaimed = reclaimed
	if reclaimed > 0 {
		monitoring.RecordLocksReclaimed(reclaimed)
		logger.InfoContext(ctx, "Reclaimed orphan reminder locks.", slog.Int64("count", reclaimed))
	}

	if !reminder.HourAllowed(now.Hour(), j.cfg.StartHour, j.cfg.EndHour) {
		res.Skip = SkipOutsideHours
		logger.InfoContext(ctx, "Run skipped: outside operating hours.",
			slog.Int("hour", now.Hour()), slog.Int("start", j.cfg.StartHour), slog.Int("end", j.cfg.EndHour))
		return nil
	}

	credits, err := j.repo.FindDueCredits(ctx, tenant.ID, now)
	if err != nil {
		res.Outcome = OutcomeAborted
		return fmt.Errorf("cannot run job, failed to load due credits: %w", err)
	}
	res.Eligible = len(credits)

	groups := reminder.GroupByPhone(credits, now, j.loc, logger)
	res.Groups = len(groups)
	res.Outcome = OutcomeCompleted

	if len(groups) == 0 {
		logger.InfoContext(ctx, "No recipient groups to notify today.")
		return nil
	}

	return j.dispatch(ctx, logger, res, tenant, groups, now)
}

// dispatch walks the recipient groups in due-date order up to the per-run
// send cap. Locks are taken per credit just before composing; a group
// where every lock was lost is another process's work and neither sends
// nor consumes the cap. On send failure the locks are deliberately left
// held so no retry can double-send; the reclaimer frees them after
// midnight.
func (j *ReminderJob) dispatch(ctx context.Context, logger *slog.Logger, res *RunResult, tenant *reminder.Tenant, groups []*reminder.RecipientGroup, now time.Time) error {
	for _, g := range groups {
		if res.Sent >= j.cfg.SendLimit {
			logger.InfoContext(ctx, "Per-run send limit reached.", slog.Int("limit", j.cfg.SendLimit))
			break
		}

		var lockedIDs []int64
		var lockedCredits []reminder.GroupedCredit
		for _, cr := range g.Credits {
			ok, err := j.repo.TryLock(ctx, cr.CreditID)
			if err != nil {
				res.Outcome = OutcomeAborted
				return fmt.Errorf("cannot continue run, lock acquisition failed: %w", err)
			}
			if ok {
				lockedIDs = append(lockedIDs, cr.CreditID)
				lockedCredits = append(lockedCredits, cr)
			}
		}

		if len(lockedIDs) == 0 {
			res.SkippedGroups++
			logger.DebugContext(ctx, "Group skipped: all credits locked by another run.", slog.String("phone", g.Phone))
			continue
		}

		sendGroup := *g
		sendGroup.Credits = lockedCredits
		text := j.composer.Compose(&sendGroup, now)

		if err := j.limiter.Wait(ctx); err != nil {
			res.Outcome = OutcomeAborted
			return fmt.Errorf("run interrupted while throttling: %w", err)
		}

		groupLog := logger.With(slog.String("phone", g.Phone), slog.Any("credit_ids", lockedIDs))

		messageID, err := j.sender.SendText(ctx, g.Phone, text)
		if err != nil {
			res.Errors++
			monitoring.RecordReminderError()
			groupLog.ErrorContext(ctx, "Failed to send reminder; locks retained.", slog.Any("error", err))
			continue
		}

		if err := j.repo.ReleaseNotified(ctx, lockedIDs, j.now()); err != nil {
			res.Errors++
			monitoring.RecordReminderError()
			groupLog.ErrorContext(ctx, "Reminder sent but lock release failed; reclaimer will clear it.", slog.Any("error", err))
			continue
		}

		if err := j.repo.SaveOutboundMessage(ctx, &reminder.OutboundMessage{
			TenantID:  tenant.ID,
			MessageID: messageID,
			To:        g.Phone,
			Body:      text,
			SentAt:    j.now(),
		}); err != nil {
			groupLog.WarnContext(ctx, "Failed to persist outbound message record.", slog.Any("error", err))
		}

		if j.publisher != nil {
			if err := j.publisher.PublishReminderSent(ctx, event.ReminderSentEvent{
				TenantID:  tenant.ID,
				CreditIDs: lockedIDs,
				Phone:     g.Phone,
				MessageID: messageID,
				Timestamp: j.now(),
			}); err != nil {
				groupLog.WarnContext(ctx, "Failed to publish reminder event.", slog.Any("error", err))
			}
		}

		res.Sent++
		monitoring.RecordReminderSent()
		groupLog.InfoContext(ctx, "Reminder sent.", slog.String("message_id", messageID), slog.String("borrower", g.BorrowerName))
	}
	return nil
}
