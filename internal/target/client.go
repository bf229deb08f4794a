// Package target implements the TargetClient from spec §4.3: a typed
// Smartsheet REST client for workspaces, sheets, columns, and rows, with a
// single-request-per-batch rule for column/row writes. Grounded on the
// teacher's m3api.Client (bearer token injection, JSON request/response,
// DEBUG narration) generalized from M3's MI-execute shape to Smartsheet's
// resource-oriented REST surface.
package target

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/retry"
)

const defaultBaseURL = "https://api.smartsheet.com/2.0"

// httpError carries the response status so retry.Classify can inspect it.
type httpError struct {
	status int
	body   string
	method string
	path   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.method, e.path, e.status, e.body)
}

func (e *httpError) StatusCode() int { return e.status }

// Client is the Smartsheet REST API client.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	retry      *retry.Engine
	maxRetries int
	log        *logging.Logger
}

// New builds a Client authenticated with apiToken.
func New(apiToken string, maxRetries int, log *logging.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      retry.NewEngine(),
		maxRetries: maxRetries,
		log:        log,
	}
}

// do performs one retried request against a Smartsheet REST path, decoding
// the JSON response body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return migerr.Connection("failed to marshal target request body", err)
		}
		bodyBytes = b
	}

	op := func(ctx context.Context) error {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return migerr.Connection("failed to build target request", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("Accept", "application/json")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return migerr.Connection(fmt.Sprintf("target request %s %s failed", method, path), err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return migerr.Connection("failed to read target response body", err)
		}

		c.log.Debugf("%s %s -> %d", method, path, resp.StatusCode)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return migerr.RateLimit(0, fmt.Sprintf("target rate-limited on %s %s", method, path), &httpError{resp.StatusCode, string(respBody), method, path})
		case http.StatusUnauthorized:
			return migerr.Auth(migerr.AuthExpired, "target request unauthorized", &httpError{resp.StatusCode, string(respBody), method, path})
		case http.StatusForbidden:
			return migerr.Permission(fmt.Sprintf("target forbidden on %s %s", method, path), &httpError{resp.StatusCode, string(respBody), method, path})
		}
		if resp.StatusCode >= 300 {
			return &httpError{resp.StatusCode, string(respBody), method, path}
		}

		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return migerr.Data(fmt.Sprintf("failed to decode target response from %s %s", method, path), err)
			}
		}
		return nil
	}

	return c.retry.TryWith(ctx, op, c.maxRetries, 500*time.Millisecond)
}

// --- Workspaces ---

type workspaceEnvelope struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
}

type workspaceChildrenEnvelope struct {
	Data []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"data"`
}

type workspaceListEnvelope struct {
	Data []workspaceEnvelope `json:"data"`
}

// ListWorkspaces lists every workspace visible to the authenticated user.
// includeAll=true asks Smartsheet for the full result set in one page,
// since this is only ever used to check for an existing workspace by name
// before creating one, not to browse a large result set.
func (c *Client) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	var env workspaceListEnvelope
	if err := c.do(ctx, http.MethodGet, "/workspaces?includeAll=true", nil, &env); err != nil {
		return nil, err
	}
	out := make([]model.Workspace, 0, len(env.Data))
	for _, w := range env.Data {
		out = append(out, model.Workspace{ID: w.ID, Name: w.Name, Permalink: w.Permalink})
	}
	return out, nil
}

// CreateWorkspace creates a new workspace with the given name.
func (c *Client) CreateWorkspace(ctx context.Context, name string) (*model.Workspace, error) {
	var result struct {
		Result workspaceEnvelope `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/workspaces", map[string]string{"name": name}, &result); err != nil {
		return nil, err
	}
	return &model.Workspace{ID: result.Result.ID, Name: result.Result.Name, Permalink: result.Result.Permalink}, nil
}

// GetWorkspace fetches a workspace by ID.
func (c *Client) GetWorkspace(ctx context.Context, id int64) (*model.Workspace, error) {
	var ws workspaceEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/workspaces/%d", id), nil, &ws); err != nil {
		return nil, err
	}
	return &model.Workspace{ID: ws.ID, Name: ws.Name, Permalink: ws.Permalink}, nil
}

// GetWorkspaceChildren lists the sheets and folders directly under a
// workspace.
func (c *Client) GetWorkspaceChildren(ctx context.Context, workspaceID int64) ([]model.WorkspaceChild, error) {
	var env workspaceChildrenEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/workspaces/%d/children", workspaceID), nil, &env); err != nil {
		return nil, err
	}
	children := make([]model.WorkspaceChild, 0, len(env.Data))
	for _, child := range env.Data {
		kind := model.KindOther
		if child.Type == "sheet" {
			kind = model.KindSheet
		}
		children = append(children, model.WorkspaceChild{ID: child.ID, Name: child.Name, Kind: kind})
	}
	return children, nil
}

// RenameWorkspace renames a workspace.
func (c *Client) RenameWorkspace(ctx context.Context, id int64, newName string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/workspaces/%d", id), map[string]string{"name": newName}, nil)
}

// RenameSheet renames a sheet.
func (c *Client) RenameSheet(ctx context.Context, sheetID int64, newName string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/sheets/%d", sheetID), map[string]string{"name": newName}, nil)
}

// --- Sheets ---

type sheetEnvelope struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	WorkspaceID int64           `json:"workspaceId"`
	Columns     []columnEnvelope `json:"columns"`
	Rows        []rowEnvelope   `json:"rows"`
}

// GetSheet fetches a sheet, including its columns and rows, by ID.
func (c *Client) GetSheet(ctx context.Context, id int64) (*model.Sheet, error) {
	var env sheetEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sheets/%d?include=objectValue", id), nil, &env); err != nil {
		return nil, err
	}
	return envelopeToSheet(&env), nil
}

// CreateSheetInWorkspace creates a sheet with the given columns inside a
// workspace, in a single request.
func (c *Client) CreateSheetInWorkspace(ctx context.Context, workspaceID int64, name string, columns []model.ColumnSpec) (*model.Sheet, error) {
	payload := map[string]interface{}{
		"name":    name,
		"columns": columnSpecsToPayload(columns),
	}
	var env sheetEnvelope
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/workspaces/%d/sheets", workspaceID), payload, &env); err != nil {
		return nil, err
	}
	return envelopeToSheet(&env), nil
}

// DeleteAllRows removes the rows with the given IDs from a sheet in one
// request; an empty rowIDs makes no request.
func (c *Client) DeleteAllRows(ctx context.Context, sheetID int64, rowIDs []int64) error {
	if len(rowIDs) == 0 {
		return nil
	}
	ids := make([]string, len(rowIDs))
	for i, id := range rowIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	path := fmt.Sprintf("/sheets/%d/rows?ids=%s", sheetID, strings.Join(ids, ","))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// --- Columns ---

type columnEnvelope struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Primary bool     `json:"primary"`
	Index   int      `json:"index"`
	Options []string `json:"options,omitempty"`
	Hidden  bool     `json:"hidden,omitempty"`
}

func columnSpecToPayload(spec model.ColumnSpec) map[string]interface{} {
	payload := map[string]interface{}{
		"title": spec.Title,
		"type":  string(spec.Type),
	}
	if spec.Primary {
		payload["primary"] = true
	}
	if spec.Index >= 0 {
		payload["index"] = spec.Index
	}
	if len(spec.Options) > 0 {
		payload["options"] = spec.Options
	}
	if spec.Format == model.FormatCurrency {
		payload["symbol"] = "CURRENCY"
	}
	if spec.Hidden {
		payload["hidden"] = true
	}
	if spec.ValidationLenient {
		payload["validation"] = false
	}
	return payload
}

func columnSpecsToPayload(specs []model.ColumnSpec) []map[string]interface{} {
	out := make([]map[string]interface{}, len(specs))
	for i, s := range specs {
		out[i] = columnSpecToPayload(s)
	}
	return out
}

// AddColumn adds a single column to a sheet.
func (c *Client) AddColumn(ctx context.Context, sheetID int64, spec model.ColumnSpec) (*model.Column, error) {
	cols, err := c.AddColumns(ctx, sheetID, []model.ColumnSpec{spec})
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, migerr.Data("target returned no columns for single-column add", nil)
	}
	return &cols[0], nil
}

// AddColumns adds one or more columns to a sheet in a single batch request,
// per spec §4.3's "never N single-item calls where a batch is possible"
// rule.
func (c *Client) AddColumns(ctx context.Context, sheetID int64, specs []model.ColumnSpec) ([]model.Column, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	var result struct {
		Result []columnEnvelope `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sheets/%d/columns", sheetID), columnSpecsToPayload(specs), &result); err != nil {
		return nil, err
	}
	return envelopesToColumns(result.Result), nil
}

func envelopesToColumns(envs []columnEnvelope) []model.Column {
	cols := make([]model.Column, len(envs))
	for i, e := range envs {
		cols[i] = model.Column{
			ID:      e.ID,
			Title:   e.Title,
			Type:    model.ColumnType(e.Type),
			Primary: e.Primary,
			Index:   e.Index,
			Options: e.Options,
			Hidden:  e.Hidden,
		}
	}
	return cols
}

// --- Rows ---

type cellEnvelope struct {
	ColumnID    int64              `json:"columnId,omitempty"`
	Value       interface{}        `json:"value,omitempty"`
	ObjectValue *objectValueEnvelope `json:"objectValue,omitempty"`
}

type objectValueEnvelope struct {
	ObjectType string            `json:"objectType"`
	Values     []string          `json:"values,omitempty"`
	Contacts   []contactEnvelope `json:"contacts,omitempty"` // non-standard helper shape, encoded as-is under "contacts" (not flattened into values)
}

type contactEnvelope struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type rowEnvelope struct {
	ID       int64          `json:"id,omitempty"`
	ParentID int64          `json:"parentId,omitempty"`
	ToTop    bool           `json:"toTop,omitempty"`
	Cells    []cellEnvelope `json:"cells"`
}

func rowToEnvelope(row model.Row, columnIDByTitle map[string]int64) rowEnvelope {
	env := rowEnvelope{ID: row.ID, ParentID: row.ParentID}
	if row.ID == 0 && row.ParentID == 0 {
		env.ToTop = true
	}
	for _, cell := range row.Cells {
		colID, ok := columnIDByTitle[cell.ColumnID]
		if !ok {
			continue
		}
		ce := cellEnvelope{ColumnID: colID}
		if cell.Object != nil {
			ov := &objectValueEnvelope{}
			switch cell.Object.ObjectType {
			case model.ObjectTypeMultiContact:
				ov.ObjectType = "MULTI_CONTACT"
				for _, contact := range cell.Object.Contacts {
					ov.Contacts = append(ov.Contacts, contactEnvelope{Name: contact.Name, Email: contact.Email})
				}
			case model.ObjectTypeMultiPicklist:
				ov.ObjectType = "MULTI_PICKLIST"
				ov.Values = cell.Object.Values
			}
			ce.ObjectValue = ov
		} else if cell.Value != nil {
			ce.Value = cell.Value
		} else {
			continue
		}
		env.Cells = append(env.Cells, ce)
	}
	return env
}

func envelopeToSheet(env *sheetEnvelope) *model.Sheet {
	sheet := &model.Sheet{
		ID:          env.ID,
		Name:        env.Name,
		WorkspaceID: env.WorkspaceID,
		Columns:     envelopesToColumns(env.Columns),
	}
	for _, r := range env.Rows {
		row := model.Row{ID: r.ID, ParentID: r.ParentID}
		for _, c := range r.Cells {
			row.Cells = append(row.Cells, model.Cell{ColumnID: fmt.Sprintf("%d", c.ColumnID), Value: c.Value})
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// AddRows adds one or more rows to a sheet in a single batch request.
// columnIDByTitle resolves each cell's ColumnID (a title at spec time) to
// the sheet's actual numeric column ID.
func (c *Client) AddRows(ctx context.Context, sheetID int64, rows []model.Row, columnIDByTitle map[string]int64) ([]model.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	payload := make([]rowEnvelope, len(rows))
	for i, r := range rows {
		payload[i] = rowToEnvelope(r, columnIDByTitle)
	}
	var result struct {
		Result []rowEnvelope `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sheets/%d/rows", sheetID), payload, &result); err != nil {
		return nil, err
	}
	out := make([]model.Row, len(result.Result))
	for i, r := range result.Result {
		out[i] = model.Row{ID: r.ID, ParentID: r.ParentID}
	}
	return out, nil
}

// UpdateRows updates one or more existing rows in a single batch request.
func (c *Client) UpdateRows(ctx context.Context, sheetID int64, rows []model.Row, columnIDByTitle map[string]int64) error {
	if len(rows) == 0 {
		return nil
	}
	payload := make([]rowEnvelope, len(rows))
	for i, r := range rows {
		payload[i] = rowToEnvelope(r, columnIDByTitle)
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/sheets/%d/rows", sheetID), payload, nil)
}
