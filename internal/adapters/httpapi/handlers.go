package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 << 10

// Lifecycle is the part of the core the API serves.
type Lifecycle interface {
	Register(ctx context.Context, principal application.Principal, kind domain.Kind) (domain.AccountSnapshot, error)
	OnLogin(ctx context.Context, id domain.AccountID) (domain.AccountSnapshot, error)
	Snapshot(ctx context.Context, id domain.AccountID) (domain.AccountSnapshot, error)
	CompleteProfile(ctx context.Context, id domain.AccountID, profile domain.Profile) (domain.AccountSnapshot, error)
	TryConsume(ctx context.Context, id domain.AccountID, action domain.ActionKind) (domain.ConsumeResult, error)
	RequestDeletion(ctx context.Context, id domain.AccountID, confirmed bool) (domain.AccountSnapshot, error)
	CancelDeletion(ctx context.Context, id domain.AccountID) (domain.AccountSnapshot, error)
	RequestUpgrade(ctx context.Context, id domain.AccountID, depositorName string) (domain.UpgradeRequest, error)
	RequestTransition(ctx context.Context, cmd application.TransitionCommand) (domain.AccountSnapshot, error)
	SetPlan(ctx context.Context, cmd application.SetPlanCommand) (domain.AccountSnapshot, error)
	ScanDormancy(ctx context.Context) (application.DormancyReport, error)
	MarkDormant(ctx context.Context, actorID, id domain.AccountID) (domain.AccountSnapshot, error)
	ScanPurgeable(ctx context.Context) ([]application.PurgeCandidate, error)
	HardDelete(ctx context.Context, actorID, id domain.AccountID) (domain.AccountSnapshot, error)
	PendingUpgrades(ctx context.Context) ([]domain.UpgradeRequest, error)
	CompleteUpgrade(ctx context.Context, actorID domain.AccountID, requestID domain.UpgradeRequestID) (domain.UpgradeRequest, error)
	PlanSettings(ctx context.Context, kind domain.Kind) (domain.PlanSettings, error)
	SavePlanSettings(ctx context.Context, cmd application.SaveSettingsCommand) error
}

var _ Lifecycle = (*application.Lifecycle)(nil)

type Handler struct {
	lifecycle Lifecycle
	events    ports.EventPublisher
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewHandler(lifecycle Lifecycle, events ports.EventPublisher, metrics *Metrics, logger zerolog.Logger) *Handler {
	return &Handler{lifecycle: lifecycle, events: events, metrics: metrics, logger: logger, now: time.Now}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	snapshot, err := h.lifecycle.Register(r.Context(), principal, req.Kind)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.publish(r.Context(), ports.LifecycleEvent{Type: ports.EventRegistered, AccountID: principal.ID, Status: snapshot.Account.Status})
	writeJSON(w, http.StatusOK, toSnapshotDTO(snapshot))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.lifecycle.OnLogin(r.Context(), mustPrincipal(r).ID)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.lifecycle.Snapshot(r.Context(), mustPrincipal(r).ID)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) completeProfile(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	var req profileDTO
	if !decode(w, r, &req) {
		return
	}

	snapshot, err := h.lifecycle.CompleteProfile(r.Context(), principal.ID, req.toDomain())
	h.afterTransition(r.Context(), principal.ID, principal.ID, domain.StatusPending, snapshot, err)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.lifecycle.TryConsume(r.Context(), mustPrincipal(r).ID, req.Action)
	h.metrics.consume(string(req.Action), err)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConsumeDTO(result))
}

func (h *Handler) requestDeletion(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	var req deletionRequest
	if !decode(w, r, &req) {
		return
	}

	snapshot, err := h.lifecycle.RequestDeletion(r.Context(), principal.ID, req.Confirmed)
	h.afterTransition(r.Context(), principal.ID, principal.ID, domain.StatusDeletionRequested, snapshot, err)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) cancelDeletion(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	snapshot, err := h.lifecycle.CancelDeletion(r.Context(), principal.ID)
	h.afterTransition(r.Context(), principal.ID, principal.ID, domain.StatusActive, snapshot, err)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) requestUpgrade(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	var req upgradeRequest
	if !decode(w, r, &req) {
		return
	}

	request, err := h.lifecycle.RequestUpgrade(r.Context(), principal.ID, req.DepositorName)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.publish(r.Context(), ports.LifecycleEvent{Type: ports.EventUpgradeRequested, AccountID: principal.ID})
	writeJSON(w, http.StatusOK, toUpgradeDTO(request))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	target := domain.AccountID(chi.URLParam(r, "id"))
	var req transitionRequest
	if !decode(w, r, &req) {
		return
	}

	snapshot, err := h.lifecycle.RequestTransition(r.Context(), application.TransitionCommand{
		ActorID:      principal.ID,
		TargetID:     target,
		To:           req.To,
		ExpectedFrom: req.ExpectedFrom,
	})
	h.afterTransition(r.Context(), principal.ID, target, req.To, snapshot, err)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) markDormant(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	target := domain.AccountID(chi.URLParam(r, "id"))

	snapshot, err := h.lifecycle.MarkDormant(r.Context(), principal.ID, target)
	h.afterTransition(r.Context(), principal.ID, target, domain.StatusDormant, snapshot, err)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) hardDelete(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	target := domain.AccountID(chi.URLParam(r, "id"))

	snapshot, err := h.lifecycle.HardDelete(r.Context(), principal.ID, target)
	h.afterTransition(r.Context(), principal.ID, target, domain.StatusDeleted, snapshot, err)
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) setPlan(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	target := domain.AccountID(chi.URLParam(r, "id"))
	var req planRequest
	if !decode(w, r, &req) {
		return
	}

	cmd := application.SetPlanCommand{
		ActorID:             principal.ID,
		TargetID:            target,
		Plan:                req.Plan,
		FollowerSearchLimit: req.FollowerSearchLimit,
	}
	if req.ExpiryDate != "" {
		day, err := time.Parse(time.DateOnly, req.ExpiryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_plan", "expiry_date must be YYYY-MM-DD")
			return
		}
		cmd.ExpiryDate = &day
	}

	snapshot, err := h.lifecycle.SetPlan(r.Context(), cmd)
	if err == nil {
		h.publish(r.Context(), ports.LifecycleEvent{Type: ports.EventPlanChanged, AccountID: target, ActorID: principal.ID, Plan: snapshot.Account.Plan})
	}
	h.respondSnapshot(w, snapshot, err)
}

func (h *Handler) dormancy(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	report, err := h.lifecycle.ScanDormancy(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDormancyDTO(report))
}

func (h *Handler) purgeable(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	candidates, err := h.lifecycle.ScanPurgeable(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurgeDTOs(candidates))
}

func (h *Handler) pendingUpgrades(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	requests, err := h.lifecycle.PendingUpgrades(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}

	out := make([]upgradeDTO, 0, len(requests))
	for _, request := range requests {
		out = append(out, toUpgradeDTO(request))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) completeUpgrade(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	request, err := h.lifecycle.CompleteUpgrade(r.Context(), principal.ID, domain.UpgradeRequestID(chi.URLParam(r, "id")))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.publish(r.Context(), ports.LifecycleEvent{Type: ports.EventUpgradeCompleted, AccountID: request.AccountID, ActorID: principal.ID})
	writeJSON(w, http.StatusOK, toUpgradeDTO(request))
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.lifecycle.PlanSettings(r.Context(), domain.Kind(chi.URLParam(r, "kind")))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	kind := domain.Kind(chi.URLParam(r, "kind"))
	var req settingsRequest
	if !decode(w, r, &req) {
		return
	}

	settings := domain.PlanSettings{
		Kind:                kind,
		MonthlyLimit:        req.MonthlyLimit,
		Price:               req.Price,
		PaymentInstructions: req.PaymentInstructions,
	}
	if err := h.lifecycle.SavePlanSettings(r.Context(), application.SaveSettingsCommand{ActorID: principal.ID, Settings: settings}); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// requireAdmin gates the read-only review listings, which have no core
// operation to carry the actor check.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	snapshot, err := h.lifecycle.Snapshot(r.Context(), mustPrincipal(r).ID)
	if err != nil {
		writeCoreError(w, err)
		return false
	}
	if !snapshot.Account.IsAdmin() || snapshot.Account.Status != domain.StatusActive {
		writeError(w, http.StatusForbidden, "unauthorized", "administrator required")
		return false
	}
	return true
}

func (h *Handler) afterTransition(ctx context.Context, actor, target domain.AccountID, to domain.Status, snapshot domain.AccountSnapshot, err error) {
	h.metrics.transition(string(to), err)
	if err != nil {
		return
	}

	eventType := ports.EventStatusChanged
	if to == domain.StatusDeleted {
		eventType = ports.EventDeleted
	}
	h.publish(ctx, ports.LifecycleEvent{Type: eventType, AccountID: target, ActorID: actor, Status: snapshot.Account.Status})
}

// publish runs after the core call returned; a failed publish never undoes
// the change.
func (h *Handler) publish(ctx context.Context, event ports.LifecycleEvent) {
	if event.At.IsZero() {
		event.At = h.now().UTC()
	}
	err := h.events.Publish(ctx, event)
	h.metrics.published(err)
	if err != nil {
		h.logger.Warn().Err(err).Str("type", event.Type).Str("account_id", string(event.AccountID)).Msg("lifecycle event not published")
	}
}

func (h *Handler) respondSnapshot(w http.ResponseWriter, snapshot domain.AccountSnapshot, err error) {
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snapshot))
}

func mustPrincipal(r *http.Request) application.Principal {
	principal, _ := PrincipalFromContext(r.Context())
	return principal
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}
