package ws

import "github.com/radieske/competitions-bet-platform/pkg/contracts/events"

// ClientMsg é o que o navegador envia pelo WebSocket.
// Type: subscribe | unsubscribe | ping
// Kind: competitions, sports, stages, competitionssports ou "*" para todos
type ClientMsg struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
}

// CatalogUpdate é o que o hub repassa para os inscritos
type CatalogUpdate struct {
	Type    string                `json:"type"`
	Payload events.CatalogChanged `json:"payload"`
}

const (
	TypeCatalog = "catalog"
	TypePong    = "pong"
	KindAll     = "*"
)
