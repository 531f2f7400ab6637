package mockapi

import "sort"

// Canned registry content served by the stub backend: enough tasks,
// versions, and models to exercise every client flow offline.

type promptVersion struct {
	Template       string
	TaskType       string
	Constraints    map[string]interface{}
	InputVariables []string
	SchemaFields   []string
}

var catalogTasks = map[string]map[string]promptVersion{
	"sentiment": {
		"v1": {
			Template:       "Classify the sentiment of the following text as positive, negative or neutral:\n\n{{text}}",
			TaskType:       "classification",
			Constraints:    map[string]interface{}{"temperature": 0.2, "max_tokens": 64},
			InputVariables: []string{"text"},
		},
		"v2": {
			Template:       "You are a sentiment analyst. Read the text below and answer with exactly one word (positive, negative, neutral):\n\n{{text}}",
			TaskType:       "classification",
			Constraints:    map[string]interface{}{"temperature": 0.0, "max_tokens": 16},
			InputVariables: []string{"text"},
		},
	},
	"summarize": {
		"v1": {
			Template:       "Summarize the following text in two sentences:\n\n{{text}}",
			TaskType:       "summarization",
			Constraints:    map[string]interface{}{"temperature": 0.3, "max_tokens": 256},
			InputVariables: []string{"text"},
		},
	},
	"extract-entities": {
		"v1": {
			Template:       "Extract all company names and years from the text below as JSON:\n\n{{text}}",
			TaskType:       "extraction",
			Constraints:    map[string]interface{}{"temperature": 0.0, "max_tokens": 256},
			InputVariables: []string{"text"},
			SchemaFields:   []string{"companies", "years"},
		},
	},
	"fact-check": {
		"v1": {
			Template:       "Verify whether the claim is supported by the source. Answer supported, refuted or unverifiable:\n\n{{text}}",
			TaskType:       "verification",
			Constraints:    map[string]interface{}{"temperature": 0.1, "max_tokens": 128},
			InputVariables: []string{"text"},
		},
	},
}

var catalogModels = map[string][]string{
	"all":   {"command-a-03-2025", "command-r-plus", "command-r", "command-light"},
	"fast":  {"command-r", "command-light"},
	"mid":   {"command-r-plus"},
	"heavy": {"command-a-03-2025"},
}

// defaultInputs are the fallback test inputs per task type, used when a
// generation request carries no base inputs.
var defaultInputs = map[string][]string{
	"summarization": {
		"In 2023, Apple reported a 10% increase in revenue while also announcing layoffs across several departments due to market uncertainty.",
		"The European Union introduced new AI regulations aimed at improving transparency and safety, though some companies expressed concerns about compliance costs.",
	},
	"extraction": {
		"In 2022, Google announced that its cloud platform achieved a 30% increase in customer adoption.",
		"Microsoft released a new product in 2023 with advanced AI capabilities.",
	},
	"classification": {
		"The product exceeded expectations and delivered outstanding performance.",
		"Customer service was slow and unhelpful.",
	},
	"verification": {
		"Claim: Tesla increased vehicle production by 50% in 2022. Source: Tesla reported significant production growth in 2022.",
	},
	"reasoning": {
		"The company improved its performance last year compared to previous years.",
	},
	"generation": {
		"Write a short motivational quote about learning.",
		"Generate a two-line product description for a smartwatch.",
	},
}

var genericInputs = []string{
	"Sample input text for testing.",
	"Another test input for evaluation.",
}

func defaultInputsFor(taskType string) []string {
	if inputs, ok := defaultInputs[taskType]; ok {
		return inputs
	}
	return genericInputs
}

func taskNames() []string {
	names := make([]string, 0, len(catalogTasks))
	for name := range catalogTasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func versionNames(task string) ([]string, bool) {
	versions, ok := catalogTasks[task]
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, true
}
