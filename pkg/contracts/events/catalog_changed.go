package events

// Ações sobre entidades do catálogo
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// CatalogChanged trafega no Redis Pub/Sub entre api-service e site-service.
// Kind é o nome do recurso (competitions, sports, stages, competitionssports).
type CatalogChanged struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Action   string `json:"action"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
