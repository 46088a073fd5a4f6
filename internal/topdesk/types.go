package topdesk

// Branch is a top-level location grouping (a campus).
type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is a building nested under a branch.
type Location struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Branch *Branch `json:"branch"`
}

// DropdownEntry is a single value from an asset dropdown field
// (make, model-1, computer-type).
type DropdownEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type dropdownResponse struct {
	Results []DropdownEntry `json:"results"`
}

// Template classifies an asset record and governs which fields apply.
type Template struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type templatesResponse struct {
	DataSet []Template `json:"dataSet"`
}

// AssetRef is a lightweight asset listing entry, used for stock rooms.
type AssetRef struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type assetListResponse struct {
	DataSet []AssetRef `json:"dataSet"`
}

// AssetMatch is a search hit from the asset filter endpoint, annotated with
// the template the remote record currently carries.
type AssetMatch struct {
	ID           string `json:"unid"`
	Name         string `json:"name"`
	Notes        string `json:"notes"`
	TemplateID   string `json:"-"`
	TemplateName string `json:"-"`
}

type assetFilterRequest struct {
	TemplateID       []string `json:"templateId"`
	Filter           string   `json:"$filter"`
	Fields           string   `json:"fields"`
	IncludeTemplates string   `json:"includeTemplates"`
}

type assetFilterResponse struct {
	DataSet   []AssetMatch `json:"dataSet"`
	Templates []Template   `json:"templates"`
}

// AssetFields carries the mutable asset attributes shared by create and
// update calls. JSON keys follow the TopDesk field ids.
type AssetFields struct {
	DeviceType   string `json:"computer-type,omitempty"`
	Room         string `json:"room,omitempty"`
	Make         string `json:"make,omitempty"`
	ModelID      string `json:"model-1,omitempty"`
	SerialNumber string `json:"serial-number,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Surplus      bool   `json:"surplus"`
}

type createAssetRequest struct {
	TypeID string `json:"type_id"`
	Name   string `json:"name"`
	AssetFields
}

type createAssetResponse struct {
	Data struct {
		UnID string `json:"unid"`
	} `json:"data"`
}

// Assignments lists the links currently attached to an asset.
type Assignments struct {
	Locations []AssignmentLink `json:"locations"`
}

// AssignmentLink identifies one removable asset-to-target link.
type AssignmentLink struct {
	LinkID string `json:"linkId"`
}

type assignLocationRequest struct {
	AssetIDs []string `json:"assetIds"`
	BranchID string   `json:"branchId"`
	LinkToID string   `json:"linkToId"`
	LinkType string   `json:"linkType"`
}

type assetLinkRequest struct {
	CapabilityID string `json:"capabilityId"`
	SourceID     string `json:"sourceId"`
	TargetID     string `json:"targetId"`
	Type         string `json:"type"`
}

type assetLink struct {
	LinkID string `json:"linkId"`
}

type createdDropdownEntry struct {
	ID string `json:"id"`
}
