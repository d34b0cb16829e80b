package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/orgs/{orgID}/events/{eventID}/leaderboard", handler.GetEventLeaderboard)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/orgs/{orgID}/players/resolve", RequireAuth(verifier, http.HandlerFunc(handler.ResolveCanonicalPlayer)))
	mux.Handle("POST /v1/orgs/{orgID}/events/{eventID}/ratings/rebuild", RequireAuth(verifier, http.HandlerFunc(handler.RebuildEventRatings)))
	mux.Handle("POST /v1/orgs/{orgID}/players/{playerID}/sanctions", RequireAuth(verifier, http.HandlerFunc(handler.ApplySanction)))
	mux.Handle("GET /v1/orgs/{orgID}/players/{playerID}/history", RequireAuth(verifier, http.HandlerFunc(handler.GetPlayerHistory)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/admin/rating-jobs", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRatingJobs)))
	mux.Handle("POST /v1/orgs/{orgID}/antifraud/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ReconcileDisputeSignals)))
}
