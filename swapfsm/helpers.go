package swapfsm

import (
	"encoding/hex"
	"encoding/json"
)

func decodePreimage(hexStr string) *[32]byte {
	raw, err := hex.DecodeString(hexStr)
	if err != nil || len(raw) != 32 {
		return nil
	}
	var out [32]byte
	copy(out[:], raw)
	return &out
}

// extractTxid pulls the "txid" field out of a status update's raw JSON
// payload; every terminal chain/reverse status that carries a
// transaction id uses this field name in the counterparty's payloads.
func extractTxid(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var out struct {
		Txid string `json:"txid"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return ""
	}
	return out.Txid
}
