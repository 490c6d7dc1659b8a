package model

// HistoryEntry is a conversation turn as sent to remote functions
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the input of the idea chat function
type ChatRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []HistoryEntry `json:"conversationHistory"`
	ResponseMode        ResponseMode   `json:"responseMode,omitempty"`
	RefinementMode      bool           `json:"refinementMode,omitempty"`
	Idea                string         `json:"idea,omitempty"`
}

// ChatReply is the output of the idea chat function
type ChatReply struct {
	Response         string       `json:"response"`
	Suggestions      []Suggestion `json:"suggestions,omitempty"`
	PMFAnalysis      string       `json:"pmfAnalysis,omitempty"`
	DetailedResponse string       `json:"detailedResponse,omitempty"`
	SummaryResponse  string       `json:"summaryResponse,omitempty"`
}

// EvaluateRequest is the input of the wrinkle point evaluator
type EvaluateRequest struct {
	UserMessage          string         `json:"userMessage"`
	BotResponse          string         `json:"botResponse"`
	ConversationHistory  []HistoryEntry `json:"conversationHistory"`
	CurrentWrinklePoints int            `json:"currentWrinklePoints"`
}

// PointChange is the output of the wrinkle point evaluator
type PointChange struct {
	PointChange int    `json:"pointChange"`
	Explanation string `json:"explanation"`
}

// SuggestRequest is the input of the suggestion generator
type SuggestRequest struct {
	Question        string       `json:"question"`
	IdeaDescription string       `json:"ideaDescription"`
	PreviousAnswers []string     `json:"previousAnswers"`
	ResponseMode    ResponseMode `json:"responseMode"`
}

// EnhanceRequest is the input of the salty response enhancer
type EnhanceRequest struct {
	BaseResponse     string `json:"baseResponse"`
	UserMessage      string `json:"userMessage"`
	PersistenceLevel int    `json:"persistenceLevel"`
	WrinklePoints    int    `json:"wrinklePoints"`
}

// EnhancedResponse is the output of the salty response enhancer
type EnhancedResponse struct {
	EnhancedResponse string       `json:"enhancedResponse"`
	Suggestions      []Suggestion `json:"suggestions,omitempty"`
}
