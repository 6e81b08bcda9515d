package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDefault_HasTwentyUniqueFields(t *testing.T) {
	if len(Default) != 20 {
		t.Fatalf("expected 20 fields, got %d", len(Default))
	}
	seen := map[string]bool{}
	for _, f := range Default {
		if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Description) == "" {
			t.Fatalf("field with blank name or description: %+v", f)
		}
		if seen[f.Name] {
			t.Fatalf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
	}
	if Default[0].Name != "Bid Number" || Default[19].Name != "Product Specifications" {
		t.Fatalf("unexpected field order: first=%q last=%q", Default[0].Name, Default[19].Name)
	}
}

func TestBackfill_FillsMissingAndDropsUnknown(t *testing.T) {
	got := Default.Backfill(Fields{"Title": "Road salt", "Bogus": "x"})
	if len(got) != len(Default) {
		t.Fatalf("expected %d keys, got %d", len(Default), len(got))
	}
	if got["Title"] != "Road salt" {
		t.Fatalf("Title=%q", got["Title"])
	}
	if v, ok := got["Due Date"]; !ok || v != "" {
		t.Fatalf("expected empty Due Date to be backfilled, got %q ok=%v", v, ok)
	}
	if _, ok := got["Bogus"]; ok {
		t.Fatalf("unknown key should be dropped")
	}
}

func TestDecode_CoercesValues(t *testing.T) {
	raw := []byte(`{"Bid Number": 4521, "Title": "Pumps", "Model Number": ["A-1", "B-2"], "Contact Information": {"email": "a@b.gov"}, "Due Date": null, "Extra": "x"}`)
	got, total, err := Default.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if total != 6 {
		t.Fatalf("total keys=%d, want 6", total)
	}
	cases := map[string]string{
		"Bid Number":          "4521",
		"Title":               "Pumps",
		"Model Number":        "A-1; B-2",
		"Contact Information": `{"email":"a@b.gov"}`,
		"Due Date":            "",
	}
	for k, want := range cases {
		if got[k] != want {
			t.Fatalf("%s=%q, want %q", k, got[k], want)
		}
	}
	if _, ok := got["Extra"]; ok {
		t.Fatalf("Extra must not be decoded")
	}
}

func TestDecode_RejectsNonObject(t *testing.T) {
	if _, _, err := Default.Decode([]byte(`["a"]`)); err != ErrNotObject {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
	if _, _, err := Default.Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestDecode_RejectsTrailingData(t *testing.T) {
	for _, raw := range []string{`{"Title":"x"} and some commentary`, `{"Title":"x"}{"Title":"y"}`} {
		if _, _, err := Default.Decode([]byte(raw)); !errors.Is(err, ErrTrailingData) {
			t.Fatalf("%q: expected ErrTrailingData, got %v", raw, err)
		}
	}
	got, _, err := Default.Decode([]byte("{\"Title\":\"x\"}\n  "))
	if err != nil || got["Title"] != "x" {
		t.Fatalf("trailing whitespace must be accepted: %v %v", got, err)
	}
}

func TestMarshalFields_RoundTripKeepsNonASCIIAndOrder(t *testing.T) {
	in := Default.Backfill(Fields{
		"Title":           "Équipement de déneigement <lot 3> & pièces",
		"Company Name":    "東京都",
		"Bid Number":      "RFP-2024-017",
		"Pre-Bid Meeting": "",
	})
	b, err := Default.MarshalFields(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "東京都") || !strings.Contains(s, "<lot 3> & pièces") {
		t.Fatalf("expected literal non-ASCII and HTML characters, got %s", s)
	}
	if !strings.HasPrefix(s, "{\n    \"Bid Number\": \"RFP-2024-017\",\n    \"Title\"") {
		t.Fatalf("expected schema order with 4-space indent, got %s", s)
	}
	var back map[string]string
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != len(in) {
		t.Fatalf("round trip lost keys: %d vs %d", len(back), len(in))
	}
	for k, v := range in {
		if back[k] != v {
			t.Fatalf("round trip %s=%q, want %q", k, back[k], v)
		}
	}
}

func TestMarshalList_PreservesOrder(t *testing.T) {
	list := []Fields{
		Default.Backfill(Fields{"Title": "first"}),
		Default.Backfill(Fields{"Title": "second"}),
	}
	b, err := Default.MarshalList(list)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(b), "[\n    {\n        \"Bid Number\"") {
		t.Fatalf("unexpected array layout: %s", b)
	}
	var back []map[string]string
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 2 || back[0]["Title"] != "first" || back[1]["Title"] != "second" {
		t.Fatalf("unexpected order: %+v", back)
	}
}

func TestSkeleton_ListsEveryFieldEmpty(t *testing.T) {
	sk := Default.Skeleton()
	var m map[string]string
	if err := json.Unmarshal([]byte(sk), &m); err != nil {
		t.Fatalf("skeleton is not JSON: %v", err)
	}
	if len(m) != len(Default) {
		t.Fatalf("skeleton has %d keys", len(m))
	}
	for k, v := range m {
		if v != "" {
			t.Fatalf("skeleton value for %s should be empty", k)
		}
	}
}

func TestChecker_FlagsDeviations(t *testing.T) {
	c, err := Default.NewChecker()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	full, _ := Default.MarshalFields(Default.Backfill(nil))
	if err := c.Check(full); err != nil {
		t.Fatalf("strict reply should pass: %v", err)
	}
	if err := c.Check([]byte(`{"Title": 3}`)); err == nil {
		t.Fatalf("expected a deviation for missing keys and wrong type")
	}
	var nilChecker *Checker
	if err := nilChecker.Check([]byte(`[]`)); err != nil {
		t.Fatalf("nil checker should accept: %v", err)
	}
}
