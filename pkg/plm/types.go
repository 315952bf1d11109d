package plm

// Category is a PLM item category reference.
type Category struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// LifecyclePhase is a PLM lifecycle phase reference.
type LifecyclePhase struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// Item is a PLM item. The GUID is the server-assigned opaque identity;
// Number is the human-readable item number.
type Item struct {
	GUID           string         `json:"guid"`
	Number         string         `json:"number"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Revision       string         `json:"revisionNumber"`
	Category       Category       `json:"category"`
	Lifecycle      LifecyclePhase `json:"lifecyclePhase"`
	Assembly       bool           `json:"assembly"`
	AssemblyType   string         `json:"assemblyType"`

	// Raw is the normalized response payload, preserved for callers that
	// need fields outside the trimmed schema. Not serialized back.
	Raw map[string]any `json:"-"`
}

// ItemRecord is the writable subset of an item used for create/update.
type ItemRecord struct {
	Number       string `json:"number,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CategoryGUID string `json:"-"`
	AssemblyType string `json:"assemblyType,omitempty"`
}

// BOMLine is a child relationship under a parent item. GUID is the
// server-assigned line identity; ItemGUID/ItemNumber reference the child.
type BOMLine struct {
	GUID       string            `json:"guid"`
	ItemGUID   string            `json:"itemGuid"`
	ItemNumber string            `json:"itemNumber"`
	Quantity   int               `json:"quantity"`
	Level      int               `json:"level"`
	LineNumber int               `json:"lineNumber"`
	Revision   string            `json:"revisionNumber"`
	Lifecycle  string            `json:"lifecyclePhase"`

	// Attributes maps additional-attribute GUIDs to their values
	// (e.g. the configured position attribute on level-1 lines).
	Attributes map[string]string `json:"-"`
}

// AttributeSetting describes a workspace-level item attribute.
type AttributeSetting struct {
	GUID      string `json:"guid"`
	Name      string `json:"name"`
	APIName   string `json:"apiName"`
	FieldType string `json:"fieldType"`
}

// Workspace identifies the tenant the session is bound to.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
