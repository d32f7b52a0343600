package dto

type FixedExtension struct {
	Name      string `json:"name"`
	IsBlocked bool   `json:"isBlocked"`
}

// FixedExtensionUpdateRequest keeps IsBlocked as a pointer so a missing field
// can be told apart from false.
type FixedExtensionUpdateRequest struct {
	IsBlocked *bool `json:"isBlocked"`
}

type CustomExtension struct {
	Name string `json:"name"`
}

type CustomExtensionCreateRequest struct {
	Name string `json:"name"`
}

type ExtensionOverview struct {
	Fixed       []FixedExtension  `json:"fixed"`
	Custom      []CustomExtension `json:"custom"`
	CustomCount int               `json:"customCount"`
	CustomLimit int               `json:"customLimit"`
}
