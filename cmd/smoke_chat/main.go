package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Manual smoke client for a running service. Fires one buffered and one
// streamed /chat request and prints the frames as they come in.
//
// Usage: go run ./cmd/smoke_chat "我不喜欢吃辣" [base-url]

const defaultBaseURL = "http://localhost:8080"

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func sendChat(baseURL, query string, stream bool) (*http.Response, error) {
	body := map[string]interface{}{
		"query":  query,
		"stream": stream,
	}
	jsonBody, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPost, baseURL+"/chat", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{} // No timeout, generation can be slow
	return client.Do(req)
}

func main() {
	if len(os.Args) < 2 {
		color.Red("usage: smoke_chat <query> [base-url]")
		os.Exit(1)
	}
	query := os.Args[1]
	baseURL := defaultBaseURL
	if len(os.Args) > 2 {
		baseURL = os.Args[2]
	}

	// 1. Buffered request
	color.Cyan("=== POST /chat (buffered) ===")
	resp, err := sendChat(baseURL, query, false)
	if err != nil {
		color.Red("request failed: %v", err)
		os.Exit(1)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		color.Red("status %d: %s", resp.StatusCode, string(respBody))
	} else {
		color.Green("status %d", resp.StatusCode)
		var parsed map[string]interface{}
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			delete(parsed, "raw_response")
			prettyPrint(parsed)
		}
	}

	// 2. Streaming request
	color.Cyan("=== POST /chat (stream) ===")
	resp, err = sendChat(baseURL, query, true)
	if err != nil {
		color.Red("request failed: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		color.Red("status %d: %s", resp.StatusCode, string(respBody))
		os.Exit(1)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			color.Yellow(line)
		case strings.HasPrefix(line, "data: "):
			fmt.Println(line)
		}
	}
	if err := scanner.Err(); err != nil {
		color.Red("stream read failed: %v", err)
	}
}
