package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURL = "http://localhost:8080"
)

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	fmt.Println("1. Checking health...")
	if _, ok := sendRequest("GET", "/health", nil); !ok {
		fmt.Println("FAILED: Health")
		os.Exit(1)
	}
	fmt.Println("PASSED: Health")

	fmt.Println("2. Running query...")
	payload := map[string]any{
		"message": map[string]any{
			"query_graph": map[string]any{
				"nodes": map[string]any{
					"n0": map[string]any{"ids": []string{"NCBIGene:1017"}, "categories": []string{"biolink:Gene"}},
					"n1": map[string]any{"categories": []string{"biolink:SmallMolecule"}},
				},
				"edges": map[string]any{
					"e0": map[string]any{"subject": "n0", "object": "n1"},
				},
			},
		},
	}
	body, ok := sendRequest("POST", "/query", payload)
	if !ok {
		fmt.Println("FAILED: Query")
		os.Exit(1)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Status == "" {
		fmt.Printf("FAILED: Query response missing status: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("PASSED: Query (%s)\n", resp.Status)

	fmt.Println("3. Rejecting an invalid graph...")
	invalid := map[string]any{
		"message": map[string]any{
			"query_graph": map[string]any{
				"nodes": map[string]any{"n0": map[string]any{}},
				"edges": map[string]any{"e0": map[string]any{"subject": "n0", "object": "n9"}},
			},
		},
	}
	if _, ok := sendRequest("POST", "/query", invalid); ok {
		fmt.Println("FAILED: invalid graph was accepted")
		os.Exit(1)
	}
	fmt.Println("PASSED: Invalid graph rejected")
}

func sendRequest(method, endpoint string, payload any) ([]byte, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return respBody, false
	}

	fmt.Printf("Response: %s\n", string(respBody))
	return respBody, true
}
