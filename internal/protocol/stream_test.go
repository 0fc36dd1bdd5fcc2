package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeKnownKinds(t *testing.T) {
	tests := []struct {
		frame string
		kind  Kind
	}{
		{`{"type":"auth","success":true}`, KindAuth},
		{`{"type":"stats","detectedAttacks":3,"blockedIps":2,"activeMonitoring":true,"blockedIpList":["1.2.3.4"]}`, KindStats},
		{`{"type":"attackData","attacks":[{"ip":"1.2.3.4","attackType":"SYN_FLOOD","severity":4}]}`, KindAttackData},
		{`{"type":"connectionData","connections":[{"ip":"1.2.3.4","connectionCount":12}]}`, KindConnectionData},
		{`{"type":"attackAlert","ip":"1.2.3.4","attackType":"BURST","score":90}`, KindAttackAlert},
		{`{"type":"statsUpdate","currentServerLoad":41.5,"trackingIpsCount":7}`, KindStatsUpdate},
		{`{"type":"error","message":"X"}`, KindError},
	}

	for _, tt := range tests {
		msg, err := Decode([]byte(tt.frame))
		if err != nil {
			t.Fatalf("Decode(%s) returned error: %v", tt.frame, err)
		}
		if msg.Kind() != tt.kind {
			t.Fatalf("Decode(%s) kind = %q, want %q", tt.frame, msg.Kind(), tt.kind)
		}
	}
}

func TestDecodePayloadFields(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"stats","detectedAttacks":3,"blockedIps":2,"activeMonitoring":true,"blockedIpList":["1.2.3.4","5.6.7.8"]}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	stats, ok := msg.(*Stats)
	if !ok {
		t.Fatalf("expected *Stats, got %T", msg)
	}
	if stats.DetectedAttacks != 3 || stats.BlockedIPs != 2 || !stats.ActiveMonitoring {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.BlockedIPList) != 2 || stats.BlockedIPList[1] != "5.6.7.8" {
		t.Fatalf("unexpected blocked list: %v", stats.BlockedIPList)
	}

	msg, err = Decode([]byte(`{"type":"error","message":"X"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if se, ok := msg.(*ServerError); !ok || se.Message != "X" {
		t.Fatalf("expected ServerError X, got %#v", msg)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"pong","at":1}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	u, ok := msg.(*Unknown)
	if !ok {
		t.Fatalf("expected *Unknown, got %T", msg)
	}
	if u.Kind() != "pong" {
		t.Fatalf("expected kind pong, got %q", u.Kind())
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for non-JSON frame")
	}
	if _, err := Decode([]byte(`{"message":"no tag"}`)); !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
	if _, err := Decode([]byte(`{"type":null}`)); !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType for null tag, got %v", err)
	}
	if _, err := Decode([]byte(`{"type":7}`)); err == nil {
		t.Fatal("expected error for non-string tag")
	}
	if _, err := Decode([]byte(`["stats"]`)); err == nil {
		t.Fatal("expected error for non-object frame")
	}
}

func TestDecodeCoercesPayload(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"stats","detectedAttacks":4.0,"blockedIps":"2","activeMonitoring":"true","blockedIpList":["1.2.3.4",5]}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	stats, ok := msg.(*Stats)
	if !ok {
		t.Fatalf("expected *Stats, got %T", msg)
	}
	if stats.DetectedAttacks != 4 || stats.BlockedIPs != 2 || !stats.ActiveMonitoring {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.BlockedIPList) != 2 || stats.BlockedIPList[1] != "5" {
		t.Fatalf("unexpected blocked list: %v", stats.BlockedIPList)
	}

	msg, err = Decode([]byte(`{"type":"error","message":42}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if se, ok := msg.(*ServerError); !ok || se.Message != "42" {
		t.Fatalf("expected ServerError 42, got %#v", msg)
	}

	msg, err = Decode([]byte(`{"type":"attackAlert","ip":"9.9.9.9","score":"87"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if a, ok := msg.(*AttackAlert); !ok || a.Score != 87 || a.IP != "9.9.9.9" {
		t.Fatalf("expected attack alert with score 87, got %#v", msg)
	}
}

func TestDecodeLeavesUnusableFieldsZero(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"attackData","attacks":[{"ip":"1.1.1.1","severity":{"x":1}},"junk",{"ip":"2.2.2.2","severity":3.0}]}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	data, ok := msg.(*AttackData)
	if !ok {
		t.Fatalf("expected *AttackData, got %T", msg)
	}
	if len(data.Attacks) != 2 {
		t.Fatalf("expected 2 attacks, got %+v", data.Attacks)
	}
	if data.Attacks[0].Severity != 0 || data.Attacks[1].Severity != 3 {
		t.Fatalf("unexpected severities: %+v", data.Attacks)
	}

	msg, err = Decode([]byte(`{"type":"connectionData","connections":"none"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if c, ok := msg.(*ConnectionData); !ok || len(c.Connections) != 0 {
		t.Fatalf("expected empty connection data, got %#v", msg)
	}

	msg, err = Decode([]byte(`{"type":"statsUpdate","currentServerLoad":"71.5","trackingIpsCount":null}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if u, ok := msg.(*StatsUpdate); !ok || u.ServerLoad != 71.5 || u.TrackingIPs != 0 {
		t.Fatalf("unexpected stats update: %#v", msg)
	}
}

func TestOutboundFrames(t *testing.T) {
	data, err := json.Marshal(NewAuthRequest("abc"))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"type":"auth","sessionId":"abc"}` {
		t.Fatalf("unexpected auth frame %s", data)
	}

	data, err = json.Marshal(NewSubscribeRequest(EventStats))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"type":"subscribe","event":"stats"}` {
		t.Fatalf("unexpected subscribe frame %s", data)
	}
}
