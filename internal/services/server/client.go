package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultClientTimeout = 30 * time.Second
	schemePrefix         = "http://"

	errorEncodeRequestFormat  = "encode %s request: %w"
	errorBuildRequestFormat   = "build %s request: %w"
	errorPerformRequestFormat = "call %s on %s: %w"
	errorDecodeReplyFormat    = "decode %s response: %w"
	errorRemoteFormat         = "%s failed with status %d: %s"
)

// Client calls the commands of a running server.
type Client struct {
	address    string
	httpClient *http.Client
}

// NewClient returns a Client for the server listening on address.
func NewClient(address string) Client {
	return Client{address: address, httpClient: &http.Client{Timeout: defaultClientTimeout}}
}

// Call posts payload to the named command and returns the decoded response.
func (client Client) Call(ctx context.Context, commandName string, payload interface{}) (CommandResponse, error) {
	body, encodeErr := json.Marshal(payload)
	if encodeErr != nil {
		return CommandResponse{}, fmt.Errorf(errorEncodeRequestFormat, commandName, encodeErr)
	}
	request, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, schemePrefix+client.address+commandsPrefix+commandName, bytes.NewReader(body))
	if buildErr != nil {
		return CommandResponse{}, fmt.Errorf(errorBuildRequestFormat, commandName, buildErr)
	}
	request.Header.Set(headerContentType, mimeTypeJSON)

	response, performErr := client.httpClient.Do(request)
	if performErr != nil {
		return CommandResponse{}, fmt.Errorf(errorPerformRequestFormat, commandName, client.address, performErr)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		var failure map[string]string
		_ = json.NewDecoder(response.Body).Decode(&failure)
		return CommandResponse{}, NewCommandExecutionError(response.StatusCode, fmt.Errorf(errorRemoteFormat, commandName, response.StatusCode, failure[errorFieldName]))
	}
	var commandResponse CommandResponse
	if decodeErr := json.NewDecoder(response.Body).Decode(&commandResponse); decodeErr != nil {
		return CommandResponse{}, fmt.Errorf(errorDecodeReplyFormat, commandName, decodeErr)
	}
	return commandResponse, nil
}
