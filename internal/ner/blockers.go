package ner

import (
	"strings"

	"github.com/ppiankov/experia/internal/model"
)

var pronouns = setOf(
	"i", "me", "my", "myself",
	"you", "your", "yourself",
	"he", "him", "his",
	"she", "her", "hers",
	"they", "them", "their", "theirs",
	"we", "us", "our", "ours", "ourselves",
)

// Instruments the model tends to tag as BODY ("the body of the cello")
var instruments = setOf(
	"violin", "violins", "viola", "violas", "cello", "cellos",
	"guitar", "guitars", "drum", "drums", "piano", "pianos",
	"bass", "trumpet", "trumpets", "sax", "saxophone", "saxophones",
	"flute", "flutes", "clarinet", "clarinets",
)

// A BODY span must contain one of these to be kept
var bodyAnchors = []string{
	"body", "skin", "nerve", "nerves", "chest", "heart",
	"lungs", "breath", "breathing", "pulse", "heartbeat",
	"blood", "veins", "chills", "mouth", "ear", "tears",
	"hands", "freeze", "warmth", "goosebumps", "hair", "eyes",
}

// blocked reports whether a gated prediction is a known false positive
func blocked(cat model.Category, text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))

	switch cat {
	case model.CategoryPerson:
		return pronouns[t]
	case model.CategoryBody:
		if instruments[t] {
			return true
		}
		for _, a := range bodyAnchors {
			if strings.Contains(t, a) {
				return false
			}
		}
		return true
	}
	return false
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}
