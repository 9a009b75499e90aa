package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mealplan/internal/auth"
	"mealplan/internal/cache"
	"mealplan/internal/core"
	applog "mealplan/internal/log"
	"mealplan/internal/middleware/ratelimit"
	"mealplan/internal/services"
	appweb "mealplan/web"
)

const (
	cacheKeyRecipes  = "recipes"
	cacheKeyShopping = "shopping"
)

// Server serves the planner UI: the recipe overview, the weekly selection
// and the derived shopping list.
type Server struct {
	http.Server
	templates *template.Template
	recipes   *services.RecipeService
	planning  *services.PlanningService
	gate      auth.Gate

	rateLimiter  *ratelimit.Limiter
	cacheManager *cache.Manager

	recipesCache  *cache.LRU[[]core.MealGroup]
	shoppingCache *cache.LRU[[]core.ShoppingGroup]

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, recipes *services.RecipeService, planning *services.PlanningService, gate auth.Gate) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		recipes:       recipes,
		planning:      planning,
		gate:          gate,
		rateLimiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		cacheManager:  cache.NewManager(),
		recipesCache:  cache.NewLRU[[]core.MealGroup](4, 5*time.Minute),
		shoppingCache: cache.NewLRU[[]core.ShoppingGroup](4, time.Minute),
	}

	s.cacheManager.Register(s.recipesCache)
	s.cacheManager.Register(s.shoppingCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	funcs := template.FuncMap{
		// seq renders n blank ingredient rows in the recipe forms.
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
	}
	t, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/shopping", s.withSecurityHeaders(s.handleShoppingPage))
	mux.HandleFunc("/selection", s.withSecurityHeaders(s.handleSelection))
	mux.HandleFunc("/selection/reset", s.withSecurityHeaders(s.handleSelectionReset))
	mux.HandleFunc("/items", s.withSecurityHeaders(s.handleAddItem))
	mux.HandleFunc("/recipes", s.withSecurityHeaders(s.handleCreateRecipe))
	mux.HandleFunc("/recipes/new", s.withSecurityHeaders(s.handleNewRecipeForm))
	mux.HandleFunc("/recipes/edit", s.withSecurityHeaders(s.handleEditRecipe))
	mux.HandleFunc("/recipes/delete", s.withSecurityHeaders(s.handleDeleteRecipe))
	// UI partials
	mux.HandleFunc("/ui/shopping-list", s.withSecurityHeaders(s.handleShoppingPartial))
	mux.HandleFunc("/ui/recipe-detail", s.withSecurityHeaders(s.handleRecipeDetail))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := clientIP(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit writes only; page loads stay unthrottled.
		if r.Method == http.MethodPost && !s.rateLimiter.Allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldComponent, applog.ComponentRateLimit,
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.recipes.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// allowMutation checks the edit password on a parsed form. The submitted
// value is never logged.
func (s *Server) allowMutation(r *http.Request) bool {
	return s.gate.Allow(r.Form.Get("password"))
}

func (s *Server) invalidateRecipes() {
	s.recipesCache.Delete(cacheKeyRecipes)
	// Recipe edits change aggregated amounts too.
	s.shoppingCache.Delete(cacheKeyShopping)
}

func (s *Server) invalidateShopping() {
	s.shoppingCache.Delete(cacheKeyShopping)
}

func (s *Server) getRecipeGroups(ctx context.Context) ([]core.MealGroup, error) {
	if groups, found := s.recipesCache.Get(cacheKeyRecipes); found {
		return groups, nil
	}
	groups, err := s.recipes.RecipesByMealType(ctx)
	if err != nil {
		return nil, err
	}
	s.recipesCache.Set(cacheKeyRecipes, groups)
	return groups, nil
}

func (s *Server) getShoppingGroups(ctx context.Context) ([]core.ShoppingGroup, error) {
	if groups, found := s.shoppingCache.Get(cacheKeyShopping); found {
		return groups, nil
	}
	groups, err := s.planning.ShoppingList(ctx)
	if err != nil {
		return nil, err
	}
	s.shoppingCache.Set(cacheKeyShopping, groups)
	return groups, nil
}
