package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/usecase"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) loginHandler() http.HandlerFunc {
	type request struct {
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminPassword == "" {
			s.log.Error().Msg("admin password is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.AdminPassword)) != 1 {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, err := s.auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) packagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packs, err := s.payments.GetCreditPackages(r.Context())
		if err != nil {
			http.Error(w, "Failed to list packages", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data []model.CreditPackage `json:"data"`
		}{Data: packs})
	}
}

func (s *Server) checkoutCreditsHandler() http.HandlerFunc {
	type request struct {
		TelegramID int64  `json:"telegram_id"`
		PackageID  string `json:"package_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		url, err := s.payments.CreateCreditsCheckout(r.Context(), req.TelegramID, req.PackageID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrPackageNotFound) || errors.Is(err, domain.ErrNotFound):
				http.NotFound(w, r)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "Failed to create checkout", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

func (s *Server) checkoutPremiumHandler() http.HandlerFunc {
	type request struct {
		TelegramID int64  `json:"telegram_id"`
		Plan       string `json:"plan"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		plan := model.PremiumPlan(req.Plan)
		if plan != model.PremiumPlanMonthly && plan != model.PremiumPlanYearly {
			http.Error(w, "Unknown plan", http.StatusBadRequest)
			return
		}
		url, err := s.payments.CreatePremiumCheckout(r.Context(), req.TelegramID, plan)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrPremiumDisabled):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, domain.ErrNotFound):
				http.NotFound(w, r)
			default:
				http.Error(w, "Failed to create checkout", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

// webhookHandler hands the raw body to settlement. The signature covers the
// exact bytes on the wire, so the body must not be re-encoded first.
func (s *Server) webhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Failed to read body", http.StatusBadRequest)
			return
		}
		if err := s.payments.HandleSettlement(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "Invalid event", http.StatusBadRequest)
				return
			}
			// Transient failure. A non-2xx makes the gateway redeliver.
			http.Error(w, "Settlement failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ov, err := s.stats.Overview(r.Context())
		if err != nil {
			http.Error(w, "Failed to get overview", http.StatusInternalServerError)
			return
		}
		week, month, year, err := s.stats.Revenue(r.Context())
		if err != nil {
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			usecase.Overview
			Revenue struct {
				Week  int64 `json:"week"`
				Month int64 `json:"month"`
				Year  int64 `json:"year"`
			} `json:"revenue"`
		}{
			Overview: ov,
			Revenue: struct {
				Week  int64 `json:"week"`
				Month int64 `json:"month"`
				Year  int64 `json:"year"`
			}{Week: week, Month: month, Year: year},
		})
	}
}

func (s *Server) usersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}
		accounts, total, err := s.accounts.List(r.Context(), r.URL.Query().Get("search"), offset, limit)
		if err != nil {
			http.Error(w, "Failed to list users", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []*model.Account `json:"data"`
			Total  int              `json:"total"`
			Limit  int              `json:"limit"`
			Offset int              `json:"offset"`
		}{Data: accounts, Total: total, Limit: limit, Offset: offset})
	}
}

func pathTelegramID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tgID"), 10, 64)
	return id, err == nil
}

func (s *Server) userGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tgID, ok := pathTelegramID(r)
		if !ok {
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}
		account, err := s.accounts.Get(r.Context(), tgID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get user", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func (s *Server) userUpdateHandler() http.HandlerFunc {
	type request struct {
		IsAuthorized *bool   `json:"is_authorized"`
		IsBanned     *bool   `json:"is_banned"`
		BanReason    *string `json:"ban_reason"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tgID, ok := pathTelegramID(r)
		if !ok {
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		err := s.accounts.Update(r.Context(), tgID, func(a *model.Account) error {
			if req.IsAuthorized != nil {
				a.IsAuthorized = *req.IsAuthorized
			}
			if req.IsBanned != nil {
				a.IsBanned = *req.IsBanned
			}
			if req.BanReason != nil {
				a.BanReason = *req.BanReason
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to update user", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) userBanHandler(banned bool) http.HandlerFunc {
	type request struct {
		Reason string `json:"reason"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tgID, ok := pathTelegramID(r)
		if !ok {
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}
		var req request
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		}
		if err := s.accounts.SetBanned(r.Context(), tgID, banned, req.Reason); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to update user", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) userCreditsHandler() http.HandlerFunc {
	type request struct {
		Amount int64 `json:"amount"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tgID, ok := pathTelegramID(r)
		if !ok {
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.accounts.GrantCredits(r.Context(), tgID, req.Amount); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.NotFound(w, r)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "Failed to grant credits", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) paymentsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tgID, _ := strconv.ParseInt(q.Get("telegram_id"), 10, 64)
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}
		f := repository.PaymentFilter{
			TelegramID: tgID,
			Status:     model.PaymentStatus(q.Get("status")),
			Type:       model.PaymentType(q.Get("type")),
			Offset:     offset,
			Limit:      limit,
		}
		payments, total, err := s.payments.List(r.Context(), f)
		if err != nil {
			http.Error(w, "Failed to list payments", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []*model.Payment `json:"data"`
			Total  int              `json:"total"`
			Limit  int              `json:"limit"`
			Offset int              `json:"offset"`
		}{Data: payments, Total: total, Limit: limit, Offset: offset})
	}
}

func (s *Server) settingsGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := s.settings.Get(r.Context())
		if err != nil {
			http.Error(w, "Failed to get settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

// settingsUpdateRequest mirrors usecase.SettingsUpdate with JSON names.
// Absent fields stay untouched.
type settingsUpdateRequest struct {
	FreeMessagesLimit   *int                  `json:"free_messages_limit"`
	CostPerMessage      *int64                `json:"cost_per_message"`
	PremiumEnabled      *bool                 `json:"premium_enabled"`
	PremiumMonthlyPrice *int64                `json:"premium_monthly_price"`
	PremiumYearlyPrice  *int64                `json:"premium_yearly_price"`
	CreditPackages      []model.CreditPackage `json:"credit_packages"`
	MaintenanceMode     *bool                 `json:"maintenance_mode"`
	PrivateMode         *bool                 `json:"private_mode"`
	Currency            *string               `json:"currency"`
}

func (s *Server) settingsUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		updated, err := s.settings.Update(r.Context(), usecase.SettingsUpdate{
			FreeMessagesLimit:   req.FreeMessagesLimit,
			CostPerMessage:      req.CostPerMessage,
			PremiumEnabled:      req.PremiumEnabled,
			PremiumMonthlyPrice: req.PremiumMonthlyPrice,
			PremiumYearlyPrice:  req.PremiumYearlyPrice,
			CreditPackages:      req.CreditPackages,
			MaintenanceMode:     req.MaintenanceMode,
			PrivateMode:         req.PrivateMode,
			Currency:            req.Currency,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to update settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) invitesListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := s.invites.List(r.Context())
		if err != nil {
			http.Error(w, "Failed to list invites", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data []*model.InviteCode `json:"data"`
		}{Data: codes})
	}
}

func (s *Server) invitesCreateHandler() http.HandlerFunc {
	type request struct {
		Type string `json:"type"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		typ := model.InviteCodeType(req.Type)
		if typ != model.InviteCodeOneTime && typ != model.InviteCodeUnlimited {
			http.Error(w, "Unknown invite type", http.StatusBadRequest)
			return
		}
		code, err := s.invites.Create(r.Context(), typ)
		if err != nil {
			http.Error(w, "Failed to create invite", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, code)
	}
}

func (s *Server) invitesDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if code == "" {
			http.Error(w, "Code is required", http.StatusBadRequest)
			return
		}
		if err := s.invites.Delete(r.Context(), code); err != nil {
			if errors.Is(err, domain.ErrCodeNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to delete invite", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
