package dto

type FileValidationRequest struct {
	FileName string `json:"fileName"`
}

type FileValidationResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type BatchFileValidationRequest struct {
	FileNames []string `json:"fileNames"`
}

type FileValidationResult struct {
	FileName  string `json:"fileName"`
	Extension string `json:"extension,omitempty"`
	Valid     bool   `json:"valid"`
	Message   string `json:"message"`
}

type BatchFileValidationResponse struct {
	Results      []FileValidationResult `json:"results"`
	ValidCount   int                    `json:"validCount"`
	InvalidCount int                    `json:"invalidCount"`
}
