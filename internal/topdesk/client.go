package topdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 30 * time.Second
	locationsPath  = "/tas/api/locations"
	assetsPath     = "/tas/api/assetmgmt/assets"
	templatesPath  = "/tas/api/assetmgmt/templates"
	dropdownsPath  = "/tas/api/assetmgmt/dropdowns"
	assetLinksPath = "/tas/api/assetmgmt/assetLinks"
)

// Config carries the connection settings for the TopDesk API.
type Config struct {
	BaseURL               string
	Username              string
	Password              string
	TemplateID            string
	StockRoomCapabilityID string
	Timeout               time.Duration
}

// Client is a thin typed wrapper over the TopDesk asset management REST API.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// New validates cfg and returns a Client with an instrumented HTTP transport.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("topdesk: base URL is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("topdesk: credentials are required")
	}
	if cfg.TemplateID == "" {
		return nil, errors.New("topdesk: template id is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logger,
	}, nil
}

// TemplateID returns the configured default template id for new assets.
func (c *Client) TemplateID() string { return c.cfg.TemplateID }

// ListLocations fetches all locations with their branches.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var locations []Location
	if err := c.do(ctx, "list locations", http.MethodGet, locationsPath, nil, nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// ListMakes fetches the make dropdown values.
func (c *Client) ListMakes(ctx context.Context) ([]DropdownEntry, error) {
	return c.listDropdown(ctx, "list makes", "make")
}

// ListModels fetches the model dropdown values.
func (c *Client) ListModels(ctx context.Context) ([]DropdownEntry, error) {
	return c.listDropdown(ctx, "list models", "model-1")
}

// ListDeviceTypes fetches the computer-type dropdown values.
func (c *Client) ListDeviceTypes(ctx context.Context) ([]DropdownEntry, error) {
	return c.listDropdown(ctx, "list device types", "computer-type")
}

func (c *Client) listDropdown(ctx context.Context, op, field string) ([]DropdownEntry, error) {
	query := url.Values{"field": {"name"}}
	var resp dropdownResponse
	if err := c.do(ctx, op, http.MethodGet, dropdownsPath+"/"+field, query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// CreateModel adds a new model dropdown value and returns its id.
func (c *Client) CreateModel(ctx context.Context, name string) (string, error) {
	body := map[string]string{"name": name}
	var resp createdDropdownEntry
	if err := c.do(ctx, "create model", http.MethodPost, dropdownsPath+"/model-1", nil, body, &resp); err != nil {
		c.log.Error().Err(err).Str("model_name", name).Msg("topdesk create model")
		return "", err
	}
	c.log.Debug().Str("model_name", name).Str("model_id", resp.ID).Msg("topdesk model created")
	return resp.ID, nil
}

// ListTemplates fetches all asset templates.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var resp templatesResponse
	if err := c.do(ctx, "list templates", http.MethodGet, templatesPath, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.DataSet, nil
}

// ListStockRooms fetches assets in the stock resource category.
func (c *Client) ListStockRooms(ctx context.Context) ([]AssetRef, error) {
	query := url.Values{"resourceCategory": {"stock"}}
	var resp assetListResponse
	if err := c.do(ctx, "list stock rooms", http.MethodGet, assetsPath, query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.DataSet, nil
}

// SearchAssetsByName filters assets by exact name within the given template
// ids. The returned matches carry the template reported by the API.
func (c *Client) SearchAssetsByName(ctx context.Context, name string, templateIDs []string) ([]AssetMatch, error) {
	req := assetFilterRequest{
		TemplateID:       templateIDs,
		Filter:           fmt.Sprintf("name eq '%s'", name),
		Fields:           "notes",
		IncludeTemplates: "relevant",
	}

	var resp assetFilterResponse
	if err := c.do(ctx, "search assets", http.MethodPost, assetsPath+"/filter", nil, req, &resp); err != nil {
		c.log.Error().Err(err).Str("asset_name", name).Msg("topdesk search assets")
		return nil, err
	}

	matches := resp.DataSet
	if len(resp.Templates) > 0 {
		for i := range matches {
			matches[i].TemplateID = resp.Templates[0].ID
			matches[i].TemplateName = resp.Templates[0].Text
		}
	}
	return matches, nil
}

// CreateAsset creates a new asset under the configured template and returns
// the remote-assigned id.
func (c *Client) CreateAsset(ctx context.Context, name string, fields AssetFields) (string, error) {
	req := createAssetRequest{
		TypeID:      c.cfg.TemplateID,
		Name:        name,
		AssetFields: fields,
	}

	var resp createAssetResponse
	if err := c.do(ctx, "create asset", http.MethodPost, assetsPath, nil, req, &resp); err != nil {
		c.log.Error().Err(err).Str("asset_name", name).Msg("topdesk create asset")
		return "", err
	}
	c.log.Debug().Str("asset_id", resp.Data.UnID).Str("asset_name", name).Msg("topdesk asset created")
	return resp.Data.UnID, nil
}

// UpdateAsset patches the mutable fields of an existing asset.
func (c *Client) UpdateAsset(ctx context.Context, assetID string, fields AssetFields) error {
	if err := c.do(ctx, "update asset", http.MethodPost, assetsPath+"/"+assetID, nil, fields, nil); err != nil {
		c.log.Error().Err(err).Str("asset_id", assetID).Msg("topdesk update asset")
		return err
	}
	return nil
}

// Assignments lists the links currently attached to an asset.
func (c *Client) Assignments(ctx context.Context, assetID string) (Assignments, error) {
	var resp Assignments
	if err := c.do(ctx, "get assignments", http.MethodGet, assetsPath+"/"+assetID+"/assignments", nil, nil, &resp); err != nil {
		c.log.Error().Err(err).Str("asset_id", assetID).Msg("topdesk get assignments")
		return Assignments{}, err
	}
	return resp, nil
}

// DeleteAssignment removes a single assignment link from an asset.
func (c *Client) DeleteAssignment(ctx context.Context, assetID, linkID string) error {
	path := assetsPath + "/" + assetID + "/assignments/" + linkID
	if err := c.do(ctx, "delete assignment", http.MethodDelete, path, nil, nil, nil); err != nil {
		c.log.Error().Err(err).Str("asset_id", assetID).Str("link_id", linkID).Msg("topdesk delete assignment")
		return err
	}
	return nil
}

// AssignLocation links an asset to a location within a branch, replacing any
// previous location link of the same kind.
func (c *Client) AssignLocation(ctx context.Context, assetID, branchID, locationID string) error {
	req := assignLocationRequest{
		AssetIDs: []string{assetID},
		BranchID: branchID,
		LinkToID: locationID,
		LinkType: "location",
	}
	if err := c.do(ctx, "assign location", http.MethodPut, assetsPath+"/assignments", nil, req, nil); err != nil {
		c.log.Error().Err(err).
			Str("asset_id", assetID).
			Str("branch_id", branchID).
			Str("location_id", locationID).
			Msg("topdesk assign location")
		return err
	}
	return nil
}

// StockLinkID returns the link id tying the asset to a stock room, or empty
// when no such link exists.
func (c *Client) StockLinkID(ctx context.Context, assetID string) (string, error) {
	query := url.Values{
		"capabilityId": {c.cfg.StockRoomCapabilityID},
		"sourceId":     {assetID},
	}
	var links []assetLink
	if err := c.do(ctx, "get stock link", http.MethodGet, assetLinksPath, query, nil, &links); err != nil {
		c.log.Error().Err(err).Str("asset_id", assetID).Msg("topdesk get stock link")
		return "", err
	}
	if len(links) == 0 {
		return "", nil
	}
	return links[0].LinkID, nil
}

// LinkStockRoom parks the asset in the given stock room.
func (c *Client) LinkStockRoom(ctx context.Context, assetID, stockRoomID string) error {
	req := assetLinkRequest{
		CapabilityID: c.cfg.StockRoomCapabilityID,
		SourceID:     stockRoomID,
		TargetID:     assetID,
		Type:         "parent",
	}
	if err := c.do(ctx, "link stock room", http.MethodPost, assetLinksPath, nil, req, nil); err != nil {
		c.log.Error().Err(err).Str("asset_id", assetID).Str("stock_room_id", stockRoomID).Msg("topdesk link stock room")
		return err
	}
	return nil
}

// UnlinkStockRoom removes an asset-to-stock link by its link id.
func (c *Client) UnlinkStockRoom(ctx context.Context, linkID string) error {
	if err := c.do(ctx, "unlink stock room", http.MethodDelete, assetLinksPath+"/"+linkID, nil, nil, nil); err != nil {
		c.log.Error().Err(err).Str("link_id", linkID).Msg("topdesk unlink stock room")
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, dest any) error {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload *bytes.Buffer
	if body != nil {
		payload = bytes.NewBuffer(nil)
		if err := json.NewEncoder(payload).Encode(body); err != nil {
			return fmt.Errorf("topdesk: %s: encode request: %w", op, err)
		}
	}

	var req *http.Request
	var err error
	if payload != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return fmt.Errorf("topdesk: %s: %w", op, err)
	}

	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("operation", op).Msg("topdesk request failed")
		return fmt.Errorf("topdesk: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &RemoteError{Op: op, Status: resp.StatusCode}
		c.log.Error().Int("status", resp.StatusCode).Str("operation", op).Msg("topdesk request failed")
		return err
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("topdesk: %s: decode response: %w", op, err)
	}
	return nil
}
