package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyPrompt(t *testing.T) {
	cases := []struct {
		prompt string
		isCode bool
	}{
		{"Write a Python function to rotate the cube", true},
		{"generate a script that deletes all lights", true},
		{"def add_cube():", true},
		{"class SceneBuilder", true},
		{"CODE to merge vertices", true},
		{"Rotate the selected object by 15 degrees", false},
		{"make the scene brighter", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := ClassifyPrompt(tc.prompt); got != tc.isCode {
			t.Fatalf("ClassifyPrompt(%q) = %v, expected %v", tc.prompt, got, tc.isCode)
		}
	}
}

func TestHuggingFaceAdapter_SelectModel(t *testing.T) {
	adapter := newHuggingFaceAdapter(
		"https://api-inference.huggingface.co/models",
		"bigcode/starcoder2-15b",
		"meta-llama/Meta-Llama-3-8B-Instruct",
	)

	if got := adapter.SelectModel("write python code"); got != "bigcode/starcoder2-15b" {
		t.Fatalf("expected code model got %s", got)
	}
	if got := adapter.SelectModel("rotate the cube"); got != "meta-llama/Meta-Llama-3-8B-Instruct" {
		t.Fatalf("expected general model got %s", got)
	}
}

func TestHuggingFaceAdapter_RoutesRequestByPrompt(t *testing.T) {
	adapter := newHuggingFaceAdapter(
		"https://api-inference.huggingface.co/models",
		"bigcode/starcoder2-15b",
		"meta-llama/Meta-Llama-3-8B-Instruct",
	)

	req, err := adapter.BuildRequest("write a python script", "hf_test", Options{})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if !strings.HasSuffix(req.URL, "/bigcode/starcoder2-15b") {
		t.Fatalf("expected code model in url got %s", req.URL)
	}
}

func TestHuggingFaceAdapter_ParseBothShapes(t *testing.T) {
	adapter := newHuggingFaceAdapter("https://api-inference.huggingface.co/models", "code", "general")

	fromList, err := adapter.ParseResponse([]byte(`[{"generated_text":"bpy.ops.mesh.primitive_cube_add()"}]`))
	if err != nil {
		t.Fatalf("parse list response: %v", err)
	}
	if fromList != "bpy.ops.mesh.primitive_cube_add()" {
		t.Fatalf("unexpected script %q", fromList)
	}

	fromObject, err := adapter.ParseResponse([]byte(`{"generated_text":"bpy.ops.object.delete()"}`))
	if err != nil {
		t.Fatalf("parse object response: %v", err)
	}
	if fromObject != "bpy.ops.object.delete()" {
		t.Fatalf("unexpected script %q", fromObject)
	}

	if _, err := adapter.ParseResponse([]byte(`{"error":"model loading"}`)); !errors.Is(err, ErrResponseShape) {
		t.Fatalf("expected ErrResponseShape got %v", err)
	}
	if _, err := adapter.ParseResponse([]byte(`[]`)); !errors.Is(err, ErrResponseShape) {
		t.Fatalf("expected ErrResponseShape for empty list got %v", err)
	}
}
