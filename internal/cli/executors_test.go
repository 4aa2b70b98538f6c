package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/temirov/fileprompt/internal/services/server"
	"github.com/temirov/fileprompt/internal/types"
)

func newTestControlSurface(t *testing.T, workspace string, sink *bytes.Buffer) (*application, server.Client) {
	t.Helper()
	env, environmentError := newEnvironment(&rootOptions{workspacePath: workspace, forceStdout: true}, sink)
	if environmentError != nil {
		t.Fatalf("environment: %v", environmentError)
	}
	app := newApplication(env)
	controlSurface := server.NewServer(server.Config{
		Capabilities: serverCapabilities(),
		Executors:    serverExecutors(app),
	})
	httpServer := httptest.NewServer(controlSurface.Handler())
	t.Cleanup(httpServer.Close)
	return app, server.NewClient(strings.TrimPrefix(httpServer.URL, "http://"))
}

func TestServerCopyAndHistory(t *testing.T) {
	isolateHome(t)
	workspace := t.TempDir()
	writeWorkspaceFiles(t, workspace, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
	})
	var sink bytes.Buffer
	app, client := newTestControlSurface(t, workspace, &sink)
	ctx := context.Background()

	response, callError := client.Call(ctx, types.CommandCopy, copyPayload{Paths: []string{"a.txt", "sub"}, Wait: true})
	if callError != nil {
		t.Fatalf("copy call failed: %v", callError)
	}
	var data copyData
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("decode copy data: %v", err)
	}
	if data.Submit != "started" || data.Files != 2 || data.Bytes != 9 {
		t.Fatalf("unexpected copy data %+v", data)
	}
	app.scheduler.Wait()
	if !strings.Contains(sink.String(), "## File: `sub/b.txt`") {
		t.Fatalf("expected document in sink, got:\n%s", sink.String())
	}

	if _, err := client.Call(ctx, types.CommandStack, stackPayload{Action: stackActionAdd, Name: "both", Paths: []string{"sub", "a.txt"}}); err != nil {
		t.Fatalf("stack add call failed: %v", err)
	}

	entries, historyError := fetchHistory(ctx, client)
	if historyError != nil {
		t.Fatalf("history call failed: %v", historyError)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(entries))
	}
	expectedPaths := []string{filepath.Join(workspace, "a.txt"), filepath.Join(workspace, "sub")}
	if len(entries[0].Paths) != 2 || entries[0].Paths[0] != expectedPaths[0] || entries[0].Paths[1] != expectedPaths[1] {
		t.Fatalf("unexpected history paths %v", entries[0].Paths)
	}
	if entries[0].StackName != "both" {
		t.Fatalf("expected history entry to match stack both, got %q", entries[0].StackName)
	}

	var output bytes.Buffer
	writeHistory(&output, entries)
	if !strings.Contains(output.String(), "[stack both]") || !strings.Contains(output.String(), "📄 a.txt (5 B)") {
		t.Fatalf("unexpected history rendering:\n%s", output.String())
	}
}

func TestServerCommandErrors(t *testing.T) {
	isolateHome(t)
	workspace := t.TempDir()
	writeWorkspaceFiles(t, workspace, map[string]string{"a.txt": "alpha"})
	var sink bytes.Buffer
	app, client := newTestControlSurface(t, workspace, &sink)

	testCases := []struct {
		name           string
		commandName    string
		payload        interface{}
		expectedStatus int
	}{
		{name: "copy_without_paths", commandName: types.CommandCopy, payload: copyPayload{Wait: true}, expectedStatus: http.StatusBadRequest},
		{name: "copy_missing_file", commandName: types.CommandCopy, payload: copyPayload{Paths: []string{"missing.txt"}, Wait: true}, expectedStatus: http.StatusInternalServerError},
		{name: "unknown_stack_action", commandName: types.CommandStack, payload: stackPayload{Action: "rename"}, expectedStatus: http.StatusBadRequest},
		{name: "copy_unknown_stack", commandName: types.CommandStack, payload: stackPayload{Action: stackActionCopy, Name: "nope"}, expectedStatus: http.StatusNotFound},
		{name: "unknown_command", commandName: "tree", payload: struct{}{}, expectedStatus: http.StatusNotFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, callError := client.Call(context.Background(), testCase.commandName, testCase.payload)
			var executionError server.CommandExecutionError
			if !errors.As(callError, &executionError) {
				t.Fatalf("expected a command execution error, got %v", callError)
			}
			if executionError.StatusCode() != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d (%v)", testCase.expectedStatus, executionError.StatusCode(), callError)
			}
		})
	}
	app.scheduler.Wait()
	if sink.Len() != 0 {
		t.Fatalf("failed jobs must not copy anything, got %q", sink.String())
	}
}

func TestApplicationReloadAppliesIgnoreList(t *testing.T) {
	isolateHome(t)
	workspace := t.TempDir()
	writeWorkspaceFiles(t, workspace, map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
	})
	var sink bytes.Buffer
	app, _ := newTestControlSurface(t, workspace, &sink)

	if err := editIgnoreList(app.environment, []string{filepath.Join(workspace, "b.txt")}, func(entries []string, relative string) ([]string, error) {
		return append(entries, relative), nil
	}); err != nil {
		t.Fatalf("edit ignore list: %v", err)
	}
	if err := app.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	result, copyError := app.copyPaths(context.Background(), []string{filepath.Join(workspace, "a.txt"), filepath.Join(workspace, "b.txt")})
	if copyError != nil {
		t.Fatalf("copy: %v", copyError)
	}
	if result.Outcome.Files != 1 || strings.Contains(sink.String(), "beta") {
		t.Fatalf("expected b.txt to be ignored after reload, got %d files:\n%s", result.Outcome.Files, sink.String())
	}
}

func TestServerConcurrentWaitsReportOwnOutcome(t *testing.T) {
	isolateHome(t)
	workspace := t.TempDir()
	writeWorkspaceFiles(t, workspace, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
		"sub/c.txt": "gamma",
	})
	var sink bytes.Buffer
	app, client := newTestControlSurface(t, workspace, &sink)

	testCases := []struct {
		name          string
		paths         []string
		expectedFiles int
		expectedBytes int64
	}{
		{name: "single_file", paths: []string{"a.txt"}, expectedFiles: 1, expectedBytes: 5},
		{name: "directory", paths: []string{"sub"}, expectedFiles: 2, expectedBytes: 9},
	}

	responses := make([]copyData, len(testCases))
	callErrors := make([]error, len(testCases))
	var group sync.WaitGroup
	for index, testCase := range testCases {
		group.Add(1)
		go func(index int, paths []string) {
			defer group.Done()
			response, callError := client.Call(context.Background(), types.CommandCopy, copyPayload{Paths: paths, Wait: true})
			if callError != nil {
				callErrors[index] = callError
				return
			}
			callErrors[index] = json.Unmarshal(response.Data, &responses[index])
		}(index, testCase.paths)
	}
	group.Wait()
	app.scheduler.Wait()

	for index, testCase := range testCases {
		if callErrors[index] != nil {
			t.Fatalf("%s: copy call failed: %v", testCase.name, callErrors[index])
		}
		data := responses[index]
		if data.Superseded || data.Files != testCase.expectedFiles || data.Bytes != testCase.expectedBytes {
			t.Fatalf("%s: expected %d files and %d bytes, got %+v", testCase.name, testCase.expectedFiles, testCase.expectedBytes, data)
		}
	}
}
