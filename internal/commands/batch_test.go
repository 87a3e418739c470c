package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailbox-adapter/internal/commands"
	"github.com/brandon/mailbox-adapter/internal/mailtest"
)

func TestBatch(t *testing.T) {
	f := setup(t)
	in := strings.NewReader(`
{"id": 1, "command": "unread", "params": {"folder": "INBOX"}}
{"id": 2, "command": "item", "params": {"folder": "INBOX", "id": "42"}}
{"id": 3, "command": "missing"}
{"id": 4, "command": "item", "params": {"account": "acc", "folder": "INBOX", "id": "6", "attributes": {"subject": true}}}
`)
	var out bytes.Buffer

	b := commands.NewBatch(f.registry, mailtest.Logger())
	require.NoError(t, b.Run(context.Background(), in, &out))

	var responses []commands.Response
	decoder := json.NewDecoder(&out)
	for decoder.More() {
		var resp commands.Response
		require.NoError(t, decoder.Decode(&resp))
		responses = append(responses, resp)
	}
	require.Len(t, responses, 4)

	assert.EqualValues(t, 1, responses[0].ID)
	assert.Nil(t, responses[0].Error)

	require.NotNil(t, responses[1].Error)
	assert.Equal(t, "not found", responses[1].Error.Kind)

	require.NotNil(t, responses[2].Error)
	assert.Equal(t, "command", responses[2].Error.Kind)
	assert.Equal(t, "unknown command: missing", responses[2].Error.Message)

	require.Nil(t, responses[3].Error)
	item, ok := responses[3].Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "A little message, just for you", item["subject"])
}

func TestBatchMalformed(t *testing.T) {
	f := setup(t)
	var out bytes.Buffer

	b := commands.NewBatch(f.registry, mailtest.Logger())
	err := b.Run(context.Background(), strings.NewReader(`{"command": `), &out)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestBatchCancelled(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer

	b := commands.NewBatch(f.registry, mailtest.Logger())
	require.NoError(t, b.Run(ctx, strings.NewReader(`{"command": "folders"}`), &out))
	assert.Empty(t, out.String())
}
