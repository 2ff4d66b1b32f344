package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"fitpickapi/matching"
)

// ErrClassifierUnavailable is returned before any network round trip when
// the classifier cannot run at all. Callers switch to the rule-only
// pairing path instead of failing the request.
var ErrClassifierUnavailable = errors.New("garment classifier is not available")

// LLMModelName is the GenAI model to use for the call.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite-preview-06-17"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

func floatPointer(f float32) *float32 {
	return &f
}

type GarmentAnalysis struct {
	Output matching.ClassifierOutput

	Model            string
	InputTokenCount  int32
	OutputTokenCount int32
	TotalTokenCount  int32
}

type GarmentAnalyzerProvider interface {
	AnalyzeGarmentImage(ctx context.Context, filePath string, modelName LLMModelName) (*GarmentAnalysis, error)
}

type GeminiGarmentAnalyzer struct{}

const garmentAnalysisInstruction = `You are a fashion catalog analyst. The image contains exactly one clothing item (possibly worn or on a hanger). Describe only that item, never the person or the background. Return the response in JSON format with the specified fields:
- "name": a short shopper-facing item name, e.g. "Navy Wool Blazer".
- "description": one sentence about cut, fit and notable details.
- "category": the broad slot this item occupies, one of: outerwear, top, bottom, footwear, accessory.
- "subcategory": the specific kind, e.g. "t-shirt", "jeans", "blazer", "sneakers".
- "color_primary": the dominant color as a name or hex code.
- "color_secondary": the second most present color, empty if the item is solid.
- "material": the most likely main fabric, e.g. "cotton", "wool", "leather".
- "seasons": seasons the item suits, from: spring, summer, fall, winter, all_seasons.
- "occasions": occasions the item suits, from: casual, business, formal, athletic, party, date, travel, loungewear.
- "formality": an integer from 1 (beachwear) to 10 (black tie).
- "confidence": your confidence in this analysis from 0 to 1. Use low values for blurry or ambiguous images.
If the image contains no recognizable clothing item, return confidence 0 and leave the other fields empty.`

func garmentResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"name": {
				Type: "string",
			},
			"description": {
				Type: "string",
			},
			"category": {
				Type: "string",
			},
			"subcategory": {
				Type: "string",
			},
			"color_primary": {
				Type: "string",
			},
			"color_secondary": {
				Type: "string",
			},
			"material": {
				Type: "string",
			},
			"seasons": {
				Type:  "array",
				Items: &genai.Schema{Type: "string"},
			},
			"occasions": {
				Type:  "array",
				Items: &genai.Schema{Type: "string"},
			},
			"formality": {
				Type: "integer",
			},
			"confidence": {
				Type: "number",
			},
		},
		Required: []string{"name", "category", "color_primary", "confidence"},
	}
}

func tryUploadGoogleStorage(ctx context.Context, client *genai.Client, filePath string, newName *string) (*genai.File, error) {
	var genFile *genai.File
	var err error
	maxUploadTimes := 3
	for i := range maxUploadTimes {
		config := &genai.UploadFileConfig{}
		if newName != nil {
			config = &genai.UploadFileConfig{
				Name: *newName,
			}
		}

		genFile, err = client.Files.UploadFromPath(ctx, filePath, config)
		if err == nil {
			fmt.Println("File uploaded successfully:", filePath, "Attempt:", i+1)
			return genFile, nil
		}
		fmt.Printf("Error uploading file %s, attempt %d: %v\n", filePath, i+1, err)
	}
	return nil, fmt.Errorf("failed to upload file to google storage after %d attempts: %s", maxUploadTimes, filePath)
}

func cleanAIResponseText(text string) string {
	cleanContent := strings.ReplaceAll(text, "```json", "")
	cleanContent = strings.TrimSuffix(strings.TrimSpace(cleanContent), "```")
	return strings.TrimSpace(cleanContent)
}

// AnalyzeGarmentImage runs a single classification attempt. There is no
// retry here on purpose: the analysis task owns the retry budget.
func (GeminiGarmentAnalyzer) AnalyzeGarmentImage(ctx context.Context, filePath string, modelName LLMModelName) (*GarmentAnalysis, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, ErrClassifierUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %v", err)
	}

	genFile, err := tryUploadGoogleStorage(ctx, client, filePath, nil)
	if err != nil {
		fmt.Println("Error uploading garment image:", filePath, err)
		return nil, fmt.Errorf("error uploading garment image %s: %v", filePath, err)
	}

	parts := []*genai.Part{
		{
			FileData: &genai.FileData{
				FileURI:  genFile.URI,
				MIMEType: genFile.MIMEType,
			},
		},
		{
			Text: "Analyze this clothing item.",
		},
	}

	result, err := client.Models.GenerateContent(ctx, modelName.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		CandidateCount:   1,
		MaxOutputTokens:  8000,
		Temperature:      floatPointer(0.2),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: garmentAnalysisInstruction},
			},
		},
		ResponseSchema: garmentResponseSchema(),
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("%v", err)
	}

	if result.PromptFeedback != nil {
		fmt.Println(result.PromptFeedback.BlockReason)
		fmt.Println(result.PromptFeedback.BlockReasonMessage)
		fmt.Println(result.PromptFeedback.SafetyRatings)
		return nil, fmt.Errorf("content violation: %s %s", filePath, result.PromptFeedback.BlockReasonMessage)
	}

	var inputTokenCount int32
	var outputTokenCount int32
	var totalTokenCount int32
	if result.UsageMetadata != nil {
		inputTokenCount = result.UsageMetadata.PromptTokenCount
		outputTokenCount = result.UsageMetadata.CandidatesTokenCount
		totalTokenCount = result.UsageMetadata.TotalTokenCount
		fmt.Println("Input token count:", inputTokenCount)
		fmt.Println("Output token count:", outputTokenCount)
		fmt.Println("Total token count:", totalTokenCount)
	} else {
		fmt.Println("UsageMetadata is nil!")
	}

	cleanContent := cleanAIResponseText(result.Text())
	var output matching.ClassifierOutput
	if err := json.Unmarshal([]byte(cleanContent), &output); err != nil {
		fmt.Printf("Error on parsing Gemini %s AI json %q: %v\n", modelName.String(), cleanContent, err)
		return nil, fmt.Errorf("error parsing classifier response: %v", err)
	}

	return &GarmentAnalysis{
		Output:           output,
		Model:            modelName.String(),
		InputTokenCount:  inputTokenCount,
		OutputTokenCount: outputTokenCount,
		TotalTokenCount:  totalTokenCount,
	}, nil
}
