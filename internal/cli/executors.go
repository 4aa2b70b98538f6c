package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/temirov/fileprompt/internal/orchestrator"
	"github.com/temirov/fileprompt/internal/services/server"
	"github.com/temirov/fileprompt/internal/stacks"
	"github.com/temirov/fileprompt/internal/types"
)

const (
	statusOK = "ok"

	stackActionAdd        = "add"
	stackActionList       = "list"
	stackActionRemove     = "remove"
	stackActionRemovePath = "remove-path"
	stackActionCopy       = "copy"

	copyCapabilityDescription    = "copy files and folders as Markdown; set wait to receive the outcome"
	stackCapabilityDescription   = "add, list, remove, remove-path or copy saved stacks"
	historyCapabilityDescription = "list recent copy jobs, oldest first"

	errorDecodePayloadFormat   = "decode %s payload: %w"
	errorEncodeDataFormat      = "encode %s data: %w"
	errorUnknownActionFormat   = "unknown stack action %q"
	errorStackPathCountMessage = "remove-path needs exactly one path"
)

type copyPayload struct {
	Paths []string `json:"paths"`
	Wait  bool     `json:"wait"`
}

type copyData struct {
	Submit     string `json:"submit"`
	Superseded bool   `json:"superseded,omitempty"`
	Files      int    `json:"files,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	Tokens     int    `json:"tokens,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

type stackPayload struct {
	Action string   `json:"action"`
	Name   string   `json:"name"`
	Paths  []string `json:"paths"`
	Wait   bool     `json:"wait"`
}

type historyData struct {
	Entries []types.HistoryEntry `json:"entries"`
}

// serverCapabilities lists the commands exposed by serve.
func serverCapabilities() []server.Capability {
	return []server.Capability{
		{Name: types.CommandCopy, Description: copyCapabilityDescription},
		{Name: types.CommandStack, Description: stackCapabilityDescription},
		{Name: types.CommandHistory, Description: historyCapabilityDescription},
	}
}

// serverExecutors binds every capability to the running application.
func serverExecutors(app *application) map[string]server.CommandExecutor {
	return map[string]server.CommandExecutor{
		types.CommandCopy: server.CommandExecutorFunc(func(ctx context.Context, request server.CommandRequest) (server.CommandResponse, error) {
			var payload copyPayload
			if decodeError := decodePayload(types.CommandCopy, request, &payload); decodeError != nil {
				return server.CommandResponse{}, decodeError
			}
			paths, resolveError := app.requestPaths(payload.Paths)
			if resolveError != nil {
				return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, resolveError)
			}
			return app.submit(ctx, paths, payload.Wait)
		}),
		types.CommandStack: server.CommandExecutorFunc(func(ctx context.Context, request server.CommandRequest) (server.CommandResponse, error) {
			var payload stackPayload
			if decodeError := decodePayload(types.CommandStack, request, &payload); decodeError != nil {
				return server.CommandResponse{}, decodeError
			}
			return app.executeStack(ctx, payload)
		}),
		types.CommandHistory: server.CommandExecutorFunc(func(ctx context.Context, request server.CommandRequest) (server.CommandResponse, error) {
			entries := stacks.AnnotateHistory(app.scheduler.History().Entries(), app.environment.currentConfiguration().SavedStacks)
			return encodeResponse(types.CommandHistory, historyData{Entries: entries})
		}),
	}
}

// requestPaths resolves paths received over HTTP against the workspace root.
func (app *application) requestPaths(candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, types.ErrNoSelection
	}
	return app.environment.absolutePaths(candidates)
}

// submit hands paths to the scheduler and, when wait is set, reports the
// outcome of this request. A waited request replaced by a newer one before it
// ran answers with superseded set and no outcome.
func (app *application) submit(ctx context.Context, paths []string, wait bool) (server.CommandResponse, error) {
	ticket := app.scheduler.Track(types.SelectionRequest{WorkspaceRoot: app.environment.workspaceRoot, Paths: paths})
	data := copyData{Submit: ticket.Submit().String()}
	if !wait {
		return encodeResponse(types.CommandCopy, data)
	}
	result, jobError := ticket.Wait(ctx)
	switch {
	case errors.Is(jobError, orchestrator.ErrSuperseded):
		data.Superseded = true
		return encodeResponse(types.CommandCopy, data)
	case jobError != nil:
		return server.CommandResponse{}, server.NewCommandExecutionError(statusCodeForJobError(jobError), jobError)
	}
	data.Files = result.Outcome.Files
	data.Bytes = result.Outcome.Bytes
	data.Tokens = result.Outcome.Tokens
	data.DurationMs = result.Outcome.Duration.Milliseconds()
	return encodeResponse(types.CommandCopy, data)
}

func (app *application) executeStack(ctx context.Context, payload stackPayload) (server.CommandResponse, error) {
	env := app.environment
	switch payload.Action {
	case stackActionAdd:
		paths, resolveError := app.requestPaths(payload.Paths)
		if resolveError != nil {
			return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, resolveError)
		}
		stack, addError := addStack(env, payload.Name, paths)
		if addError != nil {
			return server.CommandResponse{}, server.NewCommandExecutionError(statusCodeForStackError(addError), addError)
		}
		return encodeResponse(types.CommandStack, stack)
	case stackActionList:
		return encodeResponse(types.CommandStack, env.currentConfiguration().SavedStacks)
	case stackActionRemove:
		if removeError := removeStack(env, payload.Name); removeError != nil {
			return server.CommandResponse{}, server.NewCommandExecutionError(statusCodeForStackError(removeError), removeError)
		}
		return encodeResponse(types.CommandStack, env.currentConfiguration().SavedStacks)
	case stackActionRemovePath:
		paths, resolveError := app.requestPaths(payload.Paths)
		if resolveError != nil || len(paths) != 1 {
			return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, errors.New(errorStackPathCountMessage))
		}
		if _, removeError := removeStackPath(env, payload.Name, paths[0]); removeError != nil {
			return server.CommandResponse{}, server.NewCommandExecutionError(statusCodeForStackError(removeError), removeError)
		}
		return encodeResponse(types.CommandStack, env.currentConfiguration().SavedStacks)
	case stackActionCopy:
		paths, resolveError := resolveStack(env, payload.Name)
		if resolveError != nil {
			return server.CommandResponse{}, server.NewCommandExecutionError(statusCodeForStackError(resolveError), resolveError)
		}
		return app.submit(ctx, paths, payload.Wait)
	default:
		return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(errorUnknownActionFormat, payload.Action))
	}
}

func decodePayload(commandName string, request server.CommandRequest, target interface{}) error {
	if len(request.Payload) == 0 {
		return nil
	}
	if decodeError := json.Unmarshal(request.Payload, target); decodeError != nil {
		return server.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(errorDecodePayloadFormat, commandName, decodeError))
	}
	return nil
}

func encodeResponse(commandName string, data interface{}) (server.CommandResponse, error) {
	encoded, encodeError := json.Marshal(data)
	if encodeError != nil {
		return server.CommandResponse{}, fmt.Errorf(errorEncodeDataFormat, commandName, encodeError)
	}
	return server.CommandResponse{Status: statusOK, Data: encoded}, nil
}

func statusCodeForJobError(err error) int {
	if errors.Is(err, types.ErrNoSelection) || errors.Is(err, types.ErrNoWorkspace) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func statusCodeForStackError(err error) int {
	switch {
	case errors.Is(err, stacks.ErrStackNotFound):
		return http.StatusNotFound
	case errors.Is(err, stacks.ErrEmptyStackName), errors.Is(err, stacks.ErrNothingLeftToCopy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
