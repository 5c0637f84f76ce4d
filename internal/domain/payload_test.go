package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodePayload_KnownPairings(t *testing.T) {
	cases := []struct {
		intentType IntentType
		targetType TargetType
		raw        string
		want       Payload
	}{
		{IntentView, TargetPortfolio, `{"sections":["holdings"]}`, &PortfolioViewPayload{Sections: []string{"holdings"}}},
		{IntentExecute, TargetOrder, `{"symbol":"VTI","side":"BUY","quantity":10}`, &OrderExecutePayload{Symbol: "VTI", Side: "BUY", Quantity: 10}},
		{IntentModify, TargetAccount, `{"field":"mailing_address","new_value":"1 Main St"}`, &AccountModifyPayload{Field: "mailing_address", NewValue: "1 Main St"}},
		{IntentRequest, TargetWorkflow, `{"workflow_type":"REBALANCE"}`, &WorkflowRequestPayload{WorkflowType: "REBALANCE"}},
		{IntentConfirm, TargetDocument, `{"version":"2024-07","acknowledged":true}`, &DocumentConfirmPayload{Version: "2024-07", Acknowledged: true}},
		{IntentOverride, TargetOrder, `{"justification":"client instruction on file"}`, &OrderOverridePayload{Justification: "client instruction on file"}},
	}

	for _, tc := range cases {
		got, err := DecodePayload(tc.intentType, tc.targetType, json.RawMessage(tc.raw))
		require.NoError(t, err, "%s/%s", tc.intentType, tc.targetType)
		require.Equal(t, tc.want, got)

		gotIntent, gotTarget := got.PayloadKey()
		require.Equal(t, tc.intentType, gotIntent)
		require.Equal(t, tc.targetType, gotTarget)
	}
}

func TestDecodePayload_EmptyBodyDefaults(t *testing.T) {
	got, err := DecodePayload(IntentView, TargetPortfolio, nil)
	require.NoError(t, err)
	require.Equal(t, &PortfolioViewPayload{}, got)
}

func TestDecodePayload_UnsupportedPairing(t *testing.T) {
	_, err := DecodePayload(IntentExecute, TargetDocument, json.RawMessage(`{}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported intent pairing")
}

func TestDecodePayload_MalformedBody(t *testing.T) {
	_, err := DecodePayload(IntentExecute, TargetOrder, json.RawMessage(`{"symbol":`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode")
}

func TestNewIntent_DerivesPairingFromPayload(t *testing.T) {
	submittedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	intent := NewIntent("intent-1", "sess-1", "order-9", &OrderExecutePayload{Symbol: "VTI", Side: "SELL", Quantity: 5}, submittedAt)

	require.Equal(t, "intent-1", intent.IntentID)
	require.Equal(t, "sess-1", intent.SessionID)
	require.Equal(t, IntentExecute, intent.IntentType)
	require.Equal(t, TargetOrder, intent.TargetType)
	require.Equal(t, "order-9", intent.TargetID)
	require.Equal(t, submittedAt, intent.SubmittedAt)
}

func TestIntent_MarshalsPayloadBody(t *testing.T) {
	intent := NewIntent("intent-1", "sess-1", "", &AccountModifyPayload{Field: "email", NewValue: "a@b.c"}, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"intent_type":"MODIFY"`)
	require.Contains(t, string(raw), `"payload":{"field":"email","new_value":"a@b.c"}`)
	require.NotContains(t, string(raw), `"target_id"`)
}
