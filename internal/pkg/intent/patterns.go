package intent

import (
	"regexp"
	"strings"
)

// recognizer 单类目确定性识别器，weight 为命中时贡献的置信度
type recognizer struct {
	name     string
	patterns []*regexp.Regexp
	weight   float64
}

// 预算信号最强：带单位或大额数字基本只在谈预算时出现
var budgetRecognizer = recognizer{
	name: "budget",
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s*(k|m|mil|mill?ion|b|bn|billion)\b`),
		regexp.MustCompile(`[$€£¥]\s*\d[\d,]*`),
		regexp.MustCompile(`(?i)\b(budget|afford|price range|spend|spending)\b`),
		regexp.MustCompile(`\b\d{2,3},\d{3}(?:,\d{3})*\b`),
	},
	weight: 0.75,
}

var authorityRecognizer = recognizer{
	name: "authority",
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(decision\s*maker|i decide|my decision|sole owner|final say)\b`),
		regexp.MustCompile(`(?i)\b(ask|check with|discuss with)\s+(my\s+)?(wife|husband|partner|spouse|family|board|boss)\b`),
	},
	weight: 0.3,
}

var needRecognizer = recognizer{
	name: "need",
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(live|living|move in|family home|residence|settle down)\b`),
		regexp.MustCompile(`(?i)\b(invest(ment)?|rental|rent (it )?out|yield|roi|flip|airbnb)\b`),
		regexp.MustCompile(`(?i)\b(office|shop|commercial|warehouse|storefront)\b`),
	},
	weight: 0.35,
}

var timelineRecognizer = recognizer{
	name: "timeline",
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(asap|right away|immediately|as soon as possible)\b`),
		regexp.MustCompile(`(?i)\bwithin\s+(a|\d+)\s+(week|month|year)s?\b`),
		regexp.MustCompile(`(?i)\b(next|this)\s+(week|month|quarter|year)\b`),
		regexp.MustCompile(`(?i)\b\d+\s*(-|to)\s*\d+\s+months?\b`),
	},
	weight: 0.35,
}

var qualificationRecognizers = []recognizer{
	budgetRecognizer,
	authorityRecognizer,
	needRecognizer,
	timelineRecognizer,
}

func (r recognizer) match(message string) bool {
	for _, p := range r.patterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

// ScoreQualification 聚合各类目识别器的确定性置信度，上限 1.0
func ScoreQualification(message string) float64 {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return 0
	}

	score := 0.0
	for _, r := range qualificationRecognizers {
		if r.match(msg) {
			score += r.weight
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
