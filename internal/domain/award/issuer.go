// Package award turns a competitor's best score in a group into a persisted
// recipient row with a rendered image.
package award

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/okian/accolade/internal/domain/classify"
	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/internal/domain/render"
	"github.com/okian/accolade/internal/domain/threshold"
	"github.com/okian/accolade/pkg/logger"
	"github.com/okian/accolade/pkg/metrics"
)

const (
	defaultMaxTries        = 3
	defaultInitialInterval = 200 * time.Millisecond
	defaultKeyPrefix       = "achievements"
)

// RecipientStore finds and upserts recipients keyed by (competitor, group).
type RecipientStore interface {
	FindRecipient(ctx context.Context, competitorID, group string) (model.Recipient, bool, error)
	UpsertRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error)
}

// ObjectStore holds rendered images and hands out public URLs for them.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// AssetReader reads template artwork.
type AssetReader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Renderer composites text onto artwork.
type Renderer interface {
	Render(base []byte, text string, tpl model.Template) ([]byte, error)
}

// Templates indexes templates by key for one batch.
type Templates map[string]model.Template

// NewTemplates indexes tpls by key.
func NewTemplates(tpls []model.Template) Templates {
	out := make(Templates, len(tpls))
	for _, t := range tpls {
		out[t.Key] = t
	}
	return out
}

// Status is the result of one unit of award work.
type Status string

const (
	StatusAwarded      Status = "awarded"    // new row
	StatusUpgraded     Status = "upgraded"   // held a lower tier
	StatusRerendered   Status = "rerendered" // same tier, image regenerated
	StatusKept         Status = "kept"       // already holds a higher tier
	StatusNoQualifying Status = "no_qualifying"
	StatusSkipped      Status = "skipped" // data inconsistency
	StatusFailed       Status = "failed"  // I/O failure after retries
)

// Request is one (competitor, group) unit of work.
type Request struct {
	CompetitorID string
	Group        classify.Group
	Score        float64
	Result       model.CompetitionResult
}

// Outcome reports what Issue did. Err wraps one of the package sentinels.
type Outcome struct {
	Status    Status
	Recipient model.Recipient
	Threshold float64
	Text      string
	Err       error
}

// Issuer persists awards idempotently per (competitor, group).
type Issuer struct {
	recipients RecipientStore
	objects    ObjectStore
	assets     AssetReader
	renderer   Renderer

	logger          logger.Logger
	now             func() time.Time
	maxTries        uint
	initialInterval time.Duration
	keyPrefix       string
}

// NewIssuer creates an issuer over the given collaborators.
func NewIssuer(recipients RecipientStore, objects ObjectStore, assets AssetReader, renderer Renderer, opts ...Option) *Issuer {
	i := &Issuer{
		recipients:      recipients,
		objects:         objects,
		assets:          assets,
		renderer:        renderer,
		logger:          logger.Nop(),
		now:             time.Now,
		maxTries:        defaultMaxTries,
		initialInterval: defaultInitialInterval,
		keyPrefix:       defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue evaluates req and, when it qualifies, renders, uploads and upserts the
// award. Failures are confined to the returned Outcome.
func (i *Issuer) Issue(ctx context.Context, templates Templates, req Request) Outcome {
	out := i.issue(ctx, templates, req)
	i.report(ctx, req, out)
	return out
}

func (i *Issuer) issue(ctx context.Context, templates Templates, req Request) Outcome {
	tier, ok := threshold.Select(req.Score, req.Group.Thresholds())
	if !ok {
		return Outcome{Status: StatusNoQualifying, Err: ErrNoQualifyingThreshold}
	}

	def, ok := req.Group.DefinitionFor(tier)
	if !ok {
		return Outcome{Status: StatusSkipped, Threshold: tier,
			Err: fmt.Errorf("%w: %s at %v", ErrDefinitionNotFound, req.Group.Name, tier)}
	}

	existing, found, err := i.recipients.FindRecipient(ctx, req.CompetitorID, req.Group.Name)
	if err != nil {
		return Outcome{Status: StatusFailed, Threshold: tier, Err: fmt.Errorf("%w: find recipient: %v", ErrStorageWriteFailed, err)}
	}

	status := StatusAwarded
	if found {
		status = StatusUpgraded
		if held, ok := heldThreshold(req.Group, existing.AchievementID); ok {
			switch {
			case held > tier:
				return Outcome{Status: StatusKept, Recipient: existing, Threshold: held}
			case held == tier:
				status = StatusRerendered
			}
		}
	}

	tpl, ok := templates[def.TemplateKey]
	if !ok {
		return Outcome{Status: StatusSkipped, Threshold: tier,
			Err: fmt.Errorf("%w: %q", ErrTemplateNotFound, def.TemplateKey)}
	}

	text := overlayText(tier, def.RenderValue)
	now := i.now().UTC()
	url, err := i.renderAndUpload(ctx, tpl, text, now)
	if err != nil {
		return Outcome{Status: failureStatus(err), Threshold: tier, Text: text, Err: err}
	}

	r := model.Recipient{
		ID:               existing.ID,
		AchievementID:    def.ID,
		CompetitorID:     req.CompetitorID,
		Group:            req.Group.Name,
		MemberID:         req.Result.MemberID,
		AchievedValue:    req.Score,
		AchievedAt:       now,
		ResultID:         req.Result.ID,
		EventID:          req.Result.EventID,
		SeasonID:         req.Result.SeasonID,
		ImageURL:         url,
		ImageGeneratedAt: now,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	saved, err := i.upsert(ctx, r)
	if err != nil {
		i.discard(ctx, url)
		return Outcome{Status: StatusFailed, Threshold: tier, Text: text, Err: err}
	}
	if found && existing.ImageURL != "" && existing.ImageURL != url {
		i.discard(ctx, existing.ImageURL)
	}
	return Outcome{Status: status, Recipient: saved, Threshold: tier, Text: text}
}

// Rerender regenerates the image for an existing award in place.
func (i *Issuer) Rerender(ctx context.Context, templates Templates, a model.Achievement) Outcome {
	tpl, ok := templates[a.TemplateKey]
	if !ok {
		return Outcome{Status: StatusSkipped, Recipient: a.Recipient, Threshold: a.Threshold,
			Err: fmt.Errorf("%w: %q", ErrTemplateNotFound, a.TemplateKey)}
	}

	text := overlayText(a.Threshold, a.RenderValue)
	now := i.now().UTC()
	url, err := i.renderAndUpload(ctx, tpl, text, now)
	if err != nil {
		return Outcome{Status: failureStatus(err), Recipient: a.Recipient, Threshold: a.Threshold, Text: text, Err: err}
	}

	r := a.Recipient
	old := r.ImageURL
	r.ImageURL = url
	r.ImageGeneratedAt = now
	saved, err := i.upsert(ctx, r)
	if err != nil {
		i.discard(ctx, url)
		return Outcome{Status: StatusFailed, Recipient: a.Recipient, Threshold: a.Threshold, Text: text, Err: err}
	}
	if old != "" && old != url {
		i.discard(ctx, old)
	}
	return Outcome{Status: StatusRerendered, Recipient: saved, Threshold: a.Threshold, Text: text}
}

func (i *Issuer) renderAndUpload(ctx context.Context, tpl model.Template, text string, now time.Time) (string, error) {
	base, err := i.assets.Read(ctx, tpl.BaseImagePath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrAssetUnavailable, tpl.BaseImagePath, err)
	}

	start := time.Now()
	img, err := i.renderer.Render(base, text, tpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	metrics.RecordRenderLatency(float64(time.Since(start).Milliseconds()))

	key := fmt.Sprintf("%s/%s-%d.png", i.keyPrefix, uuid.NewString(), now.UnixMilli())
	url, err := retry(ctx, i, "upload", func() (string, error) {
		return i.objects.Put(ctx, key, img, render.ContentType)
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", ErrStorageWriteFailed, key, err)
	}
	return url, nil
}

func (i *Issuer) upsert(ctx context.Context, r model.Recipient) (model.Recipient, error) {
	saved, err := retry(ctx, i, "upsert", func() (model.Recipient, error) {
		return i.recipients.UpsertRecipient(ctx, r)
	})
	if err != nil {
		return model.Recipient{}, fmt.Errorf("%w: upsert recipient: %v", ErrStorageWriteFailed, err)
	}
	return saved, nil
}

// discard removes an object that is no longer referenced. Best effort.
func (i *Issuer) discard(ctx context.Context, url string) {
	if err := i.objects.Delete(ctx, url); err != nil {
		i.logger.Warn(ctx, "failed to delete stale image", logger.String("url", url), logger.Error(err))
	}
}

func retry[T any](ctx context.Context, i *Issuer, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.initialInterval
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && ctx.Err() != nil {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(i.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.RecordStorageRetry(op)
			i.logger.Debug(ctx, "retrying storage operation",
				logger.String("operation", op), logger.Duration("wait", wait), logger.Error(err))
		}),
	)
}

func (i *Issuer) report(ctx context.Context, req Request, out Outcome) {
	metrics.RecordAward(req.Group.Name, string(out.Status))
	fields := []logger.Field{
		logger.String("competitor", req.CompetitorID),
		logger.String("group", req.Group.Name),
		logger.Float64("score", req.Score),
		logger.Float64("tier", out.Threshold),
	}
	switch out.Status {
	case StatusNoQualifying, StatusKept:
		i.logger.Debug(ctx, "no award change", append(fields, logger.String("status", string(out.Status)))...)
	case StatusSkipped, StatusFailed:
		metrics.RecordSkip(SkipReason(out.Err))
		i.logger.Error(ctx, "award not issued", append(fields, logger.String("status", string(out.Status)), logger.Error(out.Err))...)
	default:
		i.logger.Info(ctx, "award issued", append(fields,
			logger.String("status", string(out.Status)), logger.String("image", out.Recipient.ImageURL))...)
	}
}

// SkipReason maps an outcome error to a short metric label.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrDefinitionNotFound):
		return "definition_not_found"
	case errors.Is(err, ErrTemplateNotFound):
		return "template_not_found"
	case errors.Is(err, ErrAssetUnavailable):
		return "asset_unavailable"
	case errors.Is(err, ErrRenderFailed):
		return "render_failed"
	case errors.Is(err, ErrStorageWriteFailed):
		return "storage_write_failed"
	default:
		return "unknown"
	}
}

func failureStatus(err error) Status {
	if errors.Is(err, ErrAssetUnavailable) {
		return StatusSkipped
	}
	return StatusFailed
}

func heldThreshold(g classify.Group, achievementID string) (float64, bool) {
	for _, d := range g.Definitions {
		if d.ID == achievementID {
			return d.Threshold, true
		}
	}
	return 0, false
}

func overlayText(tier float64, renderValue *float64) string {
	if renderValue != nil {
		return render.FormatThreshold(*renderValue)
	}
	return render.FormatThreshold(tier)
}
