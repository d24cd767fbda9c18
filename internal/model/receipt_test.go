package model

import (
	"encoding/json"
	"testing"
)

func TestReceiptJSONStringAmounts(t *testing.T) {
	receipt := Receipt{
		TxID:    "6f1c1d0e-1111-4a4a-9999-000000000001",
		Seq:     3,
		Kind:    KindSwap,
		Account: "alice",
		Pool:    "xrd-usd",
		Inputs:  []AssetAmount{{Resource: "XRD", Amount: "100"}},
		Outputs: []AssetAmount{{Resource: "USD", Amount: "90.661089388014913158"}},
		State: &PoolSnapshot{
			Alias:      "xrd-usd",
			ReserveA:   "1100",
			ReserveB:   "909.338910611985086842",
			TotalUnits: "100",
			FeeRate:    "0.003",
		},
		Status: StatusCommitted,
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	outputs, ok := decoded["outputs"].([]interface{})
	if !ok || len(outputs) != 1 {
		t.Fatalf("outputs should be a one-element array, got %v", decoded["outputs"])
	}
	out := outputs[0].(map[string]interface{})
	if got, ok := out["amount"].(string); !ok || got != "90.661089388014913158" {
		t.Fatalf("output amount should keep every digit as a string, got %v", out["amount"])
	}

	state := decoded["state"].(map[string]interface{})
	for _, key := range []string{"reserve_a", "reserve_b", "total_units", "fee_rate"} {
		if _, ok := state[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
	if _, ok := decoded["error"]; ok {
		t.Fatalf("error should be omitted on committed receipts")
	}
	if !receipt.Committed() {
		t.Fatalf("receipt should be committed")
	}
}

func TestInstructionDecodesOptionalDivisibility(t *testing.T) {
	var ins Instruction
	line := `{"seq":1,"kind":"create_asset","account":"alice","asset":{"symbol":"XRD","supply":"1000","divisibility":0}}`
	if err := json.Unmarshal([]byte(line), &ins); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ins.Asset == nil || ins.Asset.Divisibility == nil {
		t.Fatalf("divisibility should be set")
	}
	if *ins.Asset.Divisibility != 0 {
		t.Fatalf("divisibility = %d, want 0", *ins.Asset.Divisibility)
	}

	line = `{"seq":2,"kind":"create_asset","account":"alice","asset":{"symbol":"USD","supply":"1000"}}`
	ins = Instruction{}
	if err := json.Unmarshal([]byte(line), &ins); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ins.Asset.Divisibility != nil {
		t.Fatalf("divisibility should be unset")
	}
}
