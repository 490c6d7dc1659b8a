package model_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/wrinkle/pkg/model"
)

func TestSuggestionAcceptsStringOrObject(t *testing.T) {
	var got struct {
		Suggestions []model.Suggestion `json:"suggestions"`
	}
	raw := `{"suggestions": [
		"Parents of toddlers",
		{"text": "Night-shift nurses", "explanation": "they need care at odd hours"}
	]}`

	gt.NoError(t, json.Unmarshal([]byte(raw), &got))
	gt.A(t, got.Suggestions).Length(2)
	gt.Equal(t, got.Suggestions[0], model.Suggestion{Text: "Parents of toddlers"})
	gt.Equal(t, got.Suggestions[1], model.Suggestion{
		Text:        "Night-shift nurses",
		Explanation: "they need care at odd hours",
	})
}

func TestSuggestionRejectsOtherShapes(t *testing.T) {
	var s model.Suggestion
	gt.Error(t, json.Unmarshal([]byte(`42`), &s))
	gt.Error(t, json.Unmarshal([]byte(`["a"]`), &s))
}

func TestSessionJSONIsCamelCase(t *testing.T) {
	session := model.NewSession()
	session.HasValidIdea = true

	data, err := json.Marshal(session)
	gt.NoError(t, err)

	var fields map[string]any
	gt.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"id", "name", "isDefaultName", "hasValidIdea", "offTopicCount", "responseMode", "updatedAt"} {
		gt.Map(t, fields).HasKey(key)
	}
	gt.Equal(t, fields["hasValidIdea"], any(true))

	points := 3
	msg, err := json.Marshal(model.NewBotMessage(model.KindReply, "ok").WithPoints(points))
	gt.NoError(t, err)
	gt.S(t, string(msg)).Contains(`"pointsEarned":3`)
}
