package constants

// Wire names accepted in the "ocr" request field.
const (
	OCREasyOCR = "easyocr"
	OCRLLM     = "llm_ocr"
)

// Field types accepted in a field specification.
const (
	FieldTypeString  = "string"
	FieldTypeInteger = "integer"
)

// Completion providers for the semantic strategy.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)
