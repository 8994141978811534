package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"newsportal/internal/domain"
	infrahttp "newsportal/internal/infra/http"
	"newsportal/internal/usecase/accounts"
	"newsportal/internal/usecase/articles"
	"newsportal/internal/usecase/categories"
	"newsportal/internal/usecase/subscriptions"
)

// Handler связывает HTTP-маршруты с сервисами портала.
type Handler struct {
	accounts      *accounts.Service
	articles      *articles.Service
	categories    *categories.Service
	subscriptions *subscriptions.Service
	jwtSecret     string
	log           zerolog.Logger
}

// NewHandler создаёт HTTP-обработчик.
func NewHandler(accounts *accounts.Service, articles *articles.Service, categories *categories.Service, subscriptions *subscriptions.Service, jwtSecret string, log zerolog.Logger) *Handler {
	return &Handler{
		accounts:      accounts,
		articles:      articles,
		categories:    categories,
		subscriptions: subscriptions,
		jwtSecret:     jwtSecret,
		log:           log,
	}
}

// Mount регистрирует маршруты на роутере.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/api/register", h.register)
	r.Post("/api/login", h.login)
	r.Get("/activate/{token}", h.activate)

	r.Get("/api/news", h.listArticles)
	r.Get("/api/news/search", h.searchArticles)
	r.Get("/api/news/{id}", h.getArticle)
	r.Get("/api/categories", h.listCategories)

	r.Group(func(r chi.Router) {
		r.Use(infrahttp.AuthMiddleware(h.jwtSecret))

		r.Post("/api/news", h.createArticle)
		r.Put("/api/news/{id}", h.updateArticle)
		r.Delete("/api/news/{id}", h.deleteArticle)
		r.Post("/api/news/{id}/rate", h.rateArticle)

		r.Post("/api/categories", h.createCategory)
		r.Delete("/api/categories/{id}", h.deleteCategory)
		r.Post("/api/categories/{id}/subscribe", h.subscribe)
		r.Post("/api/categories/{id}/unsubscribe", h.unsubscribe)
		r.Get("/api/subscriptions", h.listSubscriptions)

		r.Get("/api/profile", h.getProfile)
		r.Put("/api/profile", h.updateProfile)
		r.Put("/api/profiles/{id}/group", h.setGroup)
	})
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	profile, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.writeAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profileResponse(profile))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	profile, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAccountError(w, r, err)
		return
	}
	token, err := infrahttp.GenerateToken(h.jwtSecret, profile.ID, profile.Email)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "profile": profileResponse(profile)})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.Activate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ссылка активации недействительна")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activated": true, "profile": profileResponse(profile)})
}

type articleRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID int64  `json:"category_id"`
	Type       string `json:"type"`
}

func (h *Handler) createArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	article, err := h.articles.Create(r.Context(), infrahttp.ProfileID(r), articles.CreateInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		Type:       domain.ArticleType(req.Type),
	})
	if err != nil {
		h.writeArticleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, articleResponse(article))
}

func (h *Handler) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	article, err := h.articles.Update(r.Context(), infrahttp.ProfileID(r), id, articles.UpdateInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		Type:       domain.ArticleType(req.Type),
	})
	if err != nil {
		h.writeArticleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleResponse(article))
}

func (h *Handler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.articles.Delete(r.Context(), infrahttp.ProfileID(r), id); err != nil {
		h.writeArticleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	article, err := h.articles.Get(r.Context(), id)
	if err != nil {
		h.writeArticleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleResponse(article))
}

func (h *Handler) listArticles(w http.ResponseWriter, r *http.Request) {
	page, err := h.articles.List(r.Context(), queryInt(r, "page", 1), queryInt(r, "per_page", 10))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(page.Articles))
	for _, a := range page.Articles {
		items = append(items, articleResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": items, "total": page.Total})
}

func (h *Handler) searchArticles(w http.ResponseWriter, r *http.Request) {
	filter := domain.ArticleFilter{
		Type: domain.ArticleType(r.URL.Query().Get("type")),
		Text: r.URL.Query().Get("q"),
	}
	if v := r.URL.Query().Get("category_id"); v != "" {
		filter.CategoryID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("author_id"); v != "" {
		filter.AuthorID, _ = strconv.ParseInt(v, 10, 64)
	}
	found, err := h.articles.Search(r.Context(), filter, queryInt(r, "page", 1), queryInt(r, "per_page", 10))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(found))
	for _, a := range found {
		items = append(items, articleResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": items})
}

type rateRequest struct {
	Value int `json:"value"`
}

func (h *Handler) rateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	rating, err := h.articles.Rate(r.Context(), infrahttp.ProfileID(r), id, req.Value)
	if err != nil {
		h.writeArticleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rating": rating})
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	category, err := h.categories.Create(r.Context(), infrahttp.ProfileID(r), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, categories.ErrNameEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, categories.ErrForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, domain.ErrDuplicate):
			writeError(w, http.StatusConflict, "рубрика с таким именем уже существует")
		default:
			h.internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse(category))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.categories.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(list))
	for _, c := range list {
		items = append(items, categoryResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(r.Context(), infrahttp.ProfileID(r), id); err != nil {
		switch {
		case errors.Is(err, categories.ErrForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, domain.ErrCategoryInUse):
			writeError(w, http.StatusConflict, "рубрика используется статьями")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "рубрика не найдена")
		default:
			h.internalError(w, r, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.subscriptions.Subscribe(r.Context(), infrahttp.ProfileID(r), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "рубрика не найдена")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscribed": true})
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.subscriptions.Unsubscribe(r.Context(), infrahttp.ProfileID(r), id); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscribed": false})
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.subscriptions.List(r.Context(), infrahttp.ProfileID(r))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(list))
	for _, c := range list {
		items = append(items, categoryResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.Get(r.Context(), infrahttp.ProfileID(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "профиль не найден")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse(profile))
}

type profileUpdateRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	if err := h.accounts.UpdateDisplayName(r.Context(), infrahttp.ProfileID(r), req.DisplayName); err != nil {
		h.writeAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

type setGroupRequest struct {
	Group string `json:"group"`
}

func (h *Handler) setGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req setGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON")
		return
	}
	if err := h.accounts.SetGroup(r.Context(), infrahttp.ProfileID(r), id, domain.UserGroup(req.Group)); err != nil {
		h.writeAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) writeAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, accounts.ErrWeakInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, accounts.ErrNotActivated):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, accounts.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "профиль не найден")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) writeArticleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, articles.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, articles.ErrPostLimit):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, articles.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, articles.ErrFrozenFields):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, articles.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error().Err(err).Str("request_id", infrahttp.RequestID(r)).Str("path", r.URL.Path).Msg("httpapi: внутренняя ошибка")
	writeError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

func articleResponse(a domain.Article) map[string]any {
	resp := map[string]any{
		"id":           a.ID,
		"title":        a.Title,
		"content":      a.Content,
		"category_id":  a.CategoryID,
		"author_id":    a.AuthorID,
		"type":         string(a.Type),
		"rating":       a.Rating,
		"published_at": a.PublishedAt,
	}
	if a.NotifiedAt != nil {
		resp["notified_at"] = a.NotifiedAt
	}
	return resp
}

func categoryResponse(c domain.Category) map[string]any {
	return map[string]any{"id": c.ID, "name": c.Name}
}

func profileResponse(p domain.Profile) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"email":        p.Email,
		"display_name": p.DisplayName,
		"group":        string(p.Group),
		"active":       p.Active,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "некорректный идентификатор")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
