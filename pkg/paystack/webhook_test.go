package paystack

import (
	"testing"
)

const chargeSuccessBody = `{"event":"charge.success","data":{"id":302961,"status":"success","reference":"ref-1","amount":500000,"currency":"NGN","channel":"card","metadata":{"intent_code":"PI-ABC","context":"donation"}}}`

func TestVerifySignatureUsesRawBytes(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	body := []byte(chargeSuccessBody)
	sig := ComputeSignature("sk_test_secret", body)

	if !c.VerifySignature(body, sig) {
		t.Fatalf("expected signature to verify")
	}
	// Re-encoded bodies no longer match the signature.
	reencoded := []byte(`{"data":{"id":302961,"status":"success","reference":"ref-1","amount":500000,"currency":"NGN","channel":"card","metadata":{"intent_code":"PI-ABC","context":"donation"}},"event":"charge.success"}`)
	if c.VerifySignature(reencoded, sig) {
		t.Fatalf("expected re-encoded body to fail verification")
	}
	if c.VerifySignature(body, "") {
		t.Fatalf("expected empty signature to fail")
	}
	if c.VerifySignature(body, "not-hex") {
		t.Fatalf("expected malformed signature to fail")
	}
	if c.VerifySignature(body, ComputeSignature("other", body)) {
		t.Fatalf("expected signature from another key to fail")
	}
}

func TestParseEventChargeSuccess(t *testing.T) {
	evt, err := ParseEvent([]byte(chargeSuccessBody))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !evt.IsChargeSuccess() {
		t.Fatalf("expected charge.success")
	}
	if evt.ID() != "charge.success:302961" {
		t.Fatalf("unexpected event id %q", evt.ID())
	}
	if evt.Data.Metadata.IntentCode != "PI-ABC" || evt.Data.Metadata.Context != "donation" {
		t.Fatalf("unexpected metadata %+v", evt.Data.Metadata)
	}
	if len(evt.Data.Raw) == 0 {
		t.Fatalf("expected raw data to be captured")
	}
}

func TestParseEventStringMetadata(t *testing.T) {
	body := `{"event":"charge.success","data":{"reference":"ref-2","metadata":"{\"intent_code\":\"PI-XYZ\",\"context\":\"event\"}"}}`
	evt, err := ParseEvent([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.Data.Metadata.IntentCode != "PI-XYZ" || evt.Data.Metadata.Context != "event" {
		t.Fatalf("unexpected metadata %+v", evt.Data.Metadata)
	}
	if evt.ID() != "charge.success:ref-2" {
		t.Fatalf("expected reference based id, got %q", evt.ID())
	}
}

func TestParseEventEmptyMetadata(t *testing.T) {
	body := `{"event":"transfer.success","data":{"reference":"ref-3","metadata":""}}`
	evt, err := ParseEvent([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.IsChargeSuccess() {
		t.Fatalf("transfer.success is not a charge success")
	}
}

func TestParseEventRejectsMissingType(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for missing event type")
	}
	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}
