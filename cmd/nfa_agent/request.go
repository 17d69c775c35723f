package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/nfa-builder/internal/schemas"
	"github.com/jonathan/nfa-builder/internal/types"
	rootschemas "github.com/jonathan/nfa-builder/schemas"
)

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodeRequest checks data against the generation request schema and
// decodes it into dst.
func decodeRequest(data []byte, dst any) error {
	if err := schemas.Validate(rootschemas.GenerationRequest, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}

// readRequestFile loads one generation request from a JSON file.
func readRequestFile(path string, stdin io.Reader) (*types.GenerationRequest, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read request %s: %w", path, err)
	}
	var req types.GenerationRequest
	if err := decodeRequest(data, &req); err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	return &req, nil
}

// readBatchFile loads a JSON array of generation requests. Every element is
// checked before any build starts.
func readBatchFile(path string, stdin io.Reader) ([]*types.GenerationRequest, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch %s: %w", path, err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("batch %s must be a JSON array of requests: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("batch %s is empty", path)
	}

	reqs := make([]*types.GenerationRequest, len(raw))
	for i, item := range raw {
		var req types.GenerationRequest
		if err := decodeRequest(item, &req); err != nil {
			return nil, fmt.Errorf("batch %s item %d: %w", path, i+1, err)
		}
		reqs[i] = &req
	}
	return reqs, nil
}

// readTableFile loads table rows from a JSON array of arrays.
func readTableFile(path string) (types.TableData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}
	var table types.TableData
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("table %s: %w", path, err)
	}
	return table, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
