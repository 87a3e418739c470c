package compose

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// DraftInfoHeader carries the key of the message a draft replies to
const DraftInfoHeader = "X-CN-DRAFT-INFO"

// EncodeDraftInfo renders key as base64 of the JSON array [account, folder, id]
func EncodeDraftInfo(key types.MessageKey) string {
	data, _ := json.Marshal([]string{key.AccountID, key.FolderID, key.ID})
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeDraftInfo parses a draft info token. Anything but a three element
// array of strings is rejected.
func DecodeDraftInfo(token string) (types.MessageKey, bool) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return types.MessageKey{}, false
	}

	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) != 3 {
		return types.MessageKey{}, false
	}
	return types.MessageKey{AccountID: parts[0], FolderID: parts[1], ID: parts[2]}, true
}
