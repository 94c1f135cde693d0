// Package alert runs the periodic expiry check: it counts expired and
// soon-to-expire products, moves newly expired products onto the shopping
// list, records an alert summary and notifies the user.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vbonduro/foodwatch/internal/domain"
	"github.com/vbonduro/foodwatch/internal/expiry"
	"github.com/vbonduro/foodwatch/internal/metrics"
	"github.com/vbonduro/foodwatch/internal/notify"
)

// NotificationTitle is the title of every expiry notification.
const NotificationTitle = "FoodWatch – expiring products"

// Reasons a pass ended early.
const (
	SkipDisabled = "disabled"
	SkipDenied   = "permission_denied"
	SkipError    = "error"
)

// ProductRepository is the pantry as seen by the engine. MigrateExpired must
// move a product to the shopping list at most once and report false when it
// was already moved.
type ProductRepository interface {
	List(ctx context.Context, location string) ([]*domain.Product, error)
	MigrateExpired(ctx context.Context, p *domain.Product, at time.Time) (bool, error)
}

type AlertRepository interface {
	Append(ctx context.Context, entry domain.AlertHistoryEntry, keep int) error
}

// Settings are the notification preferences a pass runs with.
type Settings struct {
	NotifyExpired bool
	NotifySoon    bool
	SoonDays      int
	HistoryLimit  int
}

// PassResult summarizes one pass. Skipped is empty for a pass that ran to
// completion.
type PassResult struct {
	Skipped  string `json:"skipped,omitempty"`
	Expired  int    `json:"expired"`
	Soon     int    `json:"soon"`
	Migrated int    `json:"migrated"`
	Failed   int    `json:"failed"`
	Notified bool   `json:"notified"`
}

type Engine struct {
	products ProductRepository
	alerts   AlertRepository
	notifier notify.Notifier
	metrics  *metrics.Metrics
	settings Settings
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group
}

type Option func(*Engine)

// WithClock replaces the wall clock used to snapshot "now" for each pass.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(
	products ProductRepository,
	alerts AlertRepository,
	notifier notify.Notifier,
	m *metrics.Metrics,
	settings Settings,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		products: products,
		alerts:   alerts,
		notifier: notifier,
		metrics:  m,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Settings() Settings {
	return e.settings
}

// RunPass runs one expiry check. Only one pass is in flight at a time: a call
// made while a pass is running waits for it and gets its result. Errors are
// logged, never returned.
func (e *Engine) RunPass(ctx context.Context) PassResult {
	v, _, _ := e.group.Do("pass", func() (any, error) {
		// Detached so a caller that gives up does not abort the pass for
		// everyone else sharing it.
		return e.runPass(context.WithoutCancel(ctx)), nil
	})
	return v.(PassResult)
}

func (e *Engine) runPass(ctx context.Context) PassResult {
	s := e.settings
	if !s.NotifyExpired && !s.NotifySoon {
		e.metrics.PassFinished(metrics.OutcomeDisabled)
		return PassResult{Skipped: SkipDisabled}
	}

	granted, err := e.notifier.RequestPermission(ctx)
	if err != nil {
		e.logger.Error("failed to request notification permission", "error", err)
		e.metrics.PassFinished(metrics.OutcomeError)
		return PassResult{Skipped: SkipError}
	}
	if !granted {
		e.logger.Info("notification permission denied, skipping alert pass")
		e.metrics.PassFinished(metrics.OutcomeDenied)
		return PassResult{Skipped: SkipDenied}
	}

	products, err := e.products.List(ctx, "")
	if err != nil {
		e.logger.Error("failed to list products for alert pass", "error", err)
		e.metrics.PassFinished(metrics.OutcomeError)
		return PassResult{Skipped: SkipError}
	}

	now := e.now()
	var res PassResult
	var toMigrate []*domain.Product
	for _, p := range products {
		switch expiry.Evaluate(p.Expiry, s.SoonDays, now) {
		case expiry.Expired:
			res.Expired++
			if !p.AutoMovedToShopping() {
				toMigrate = append(toMigrate, p)
			}
		case expiry.Soon:
			res.Soon++
		}
	}

	for _, p := range toMigrate {
		migrated, err := e.products.MigrateExpired(ctx, p, now)
		if err != nil {
			res.Failed++
			e.metrics.MigrationFailed()
			e.logger.Error("failed to move expired product to shopping list", "product_id", p.ID, "error", err)
			continue
		}
		if migrated {
			res.Migrated++
			e.metrics.Migrated()
			e.logger.Info("moved expired product to shopping list", "product_id", p.ID, "name", p.Name)
		}
	}

	if res.Expired > 0 || res.Soon > 0 {
		entry := domain.AlertHistoryEntry{Timestamp: now, ExpiredCount: res.Expired, SoonCount: res.Soon}
		if err := e.alerts.Append(ctx, entry, s.HistoryLimit); err != nil {
			e.logger.Error("failed to record alert", "error", err)
		}
		if body := e.notificationBody(res.Expired, res.Soon); body != "" {
			if err := e.notifier.Show(ctx, NotificationTitle, body); err != nil {
				e.logger.Error("failed to show notification", "error", err)
			} else {
				res.Notified = true
			}
		}
	}

	e.metrics.PassCounts(res.Expired, res.Soon)
	e.metrics.PassFinished(metrics.OutcomeCompleted)
	e.logger.Info("alert pass finished",
		"expired", res.Expired,
		"soon", res.Soon,
		"migrated", res.Migrated,
		"failed", res.Failed,
		"notified", res.Notified,
	)
	return res
}

// notificationBody leaves out the phrase for a count that is zero or whose
// notification is turned off.
func (e *Engine) notificationBody(expired, soon int) string {
	var parts []string
	if expired > 0 && e.settings.NotifyExpired {
		parts = append(parts, fmt.Sprintf("Expired: %d", expired))
	}
	if soon > 0 && e.settings.NotifySoon {
		parts = append(parts, fmt.Sprintf("Expiring soon: %d (≤%d days)", soon, e.settings.SoonDays))
	}
	return strings.Join(parts, " | ")
}
