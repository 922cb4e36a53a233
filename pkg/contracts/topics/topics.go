package topics

const (
	// Atividade de clientes (depósitos e apostas)
	ClientActivity    = "client_activity"
	ClientActivityDLQ = "client_activity_dlq"

	// Canal Redis Pub/Sub com alterações do catálogo (competições, esportes, etapas)
	CatalogBroadcast = "catalog_broadcast"
)
