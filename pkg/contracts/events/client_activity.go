package events

// Tipos de atividade publicados no tópico client_activity
const (
	KindFundsAdded = "funds_added"
	KindBetPlaced  = "bet_placed"
)

// ClientActivity é publicado após o commit de um depósito ou de uma aposta.
// EventID é único por operação e garante idempotência no consumidor.
type ClientActivity struct {
	EventID      string `json:"event_id"`
	Kind         string `json:"kind"`
	ClientID     string `json:"client_id"`
	StageID      string `json:"stage_id,omitempty"` // só em bet_placed
	AmountCents  int64  `json:"amount_cents"`
	BalanceCents int64  `json:"balance_cents"` // saldo após a operação
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
