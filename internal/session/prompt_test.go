package session

import (
	"strings"
	"testing"
)

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(FirmProfile{
		FirmName:      "Acme Legal Group",
		AssistantName: "Sarah",
		PracticeAreas: []string{"Personal Injury", "Criminal Defense"},
		Description:   "Serving Texas since 1998.",
	})

	for _, want := range []string{
		"You are Sarah, the virtual intake specialist for Acme Legal Group.",
		"Personal Injury, Criminal Defense",
		"Serving Texas since 1998.",
		"NEVER provide legal advice",
		"doesn't create an attorney-client relationship",
		"call 911",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildSystemPrompt_Defaults(t *testing.T) {
	prompt := BuildSystemPrompt(FirmProfile{
		FirmName:      "Acme Legal Group",
		AssistantName: "Sarah",
	})

	if !strings.Contains(prompt, "## TONE\nprofessional") {
		t.Error("default tone not applied")
	}
	if !strings.Contains(prompt, "gathering intake information for Acme Legal Group") {
		t.Error("default instructions not applied")
	}
}

func TestBuildSystemPrompt_CustomToneAndInstructions(t *testing.T) {
	prompt := BuildSystemPrompt(FirmProfile{
		FirmName:      "Acme Legal Group",
		AssistantName: "Sarah",
		Tone:          "warm and conversational",
		Instructions:  "Always mention the free consultation.",
	})

	if !strings.Contains(prompt, "warm and conversational") {
		t.Error("custom tone not used")
	}
	if !strings.Contains(prompt, "Always mention the free consultation.") {
		t.Error("custom instructions not used")
	}
}
