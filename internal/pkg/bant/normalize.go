package bant

import (
	"regexp"
	"strconv"
	"strings"
)

// 授权方归一化取值
const (
	AuthorityYes     = "yes"
	AuthorityNo      = "no"
	AuthorityUnknown = "unknown"
)

// 需求类目归一化取值
const (
	NeedResidential = "residential"
	NeedInvestment  = "investment"
	NeedCommercial  = "commercial"
)

// 时间线归一化取值
const (
	TimelineImmediate = "immediate"
	Timeline1To3      = "1-3 months"
	Timeline3To6      = "3-6 months"
	Timeline6To12     = "6-12 months"
	Timeline12Plus    = "12+ months"
)

var (
	budgetRe      = regexp.MustCompile(`(?i)([\d][\d,]*(?:\.\d+)?)\s*(k|mil|mill?ion|m|bn|billion|b)?\b`)
	budgetCueRe   = regexp.MustCompile(`(?i)[$€£¥]|\b(budget|price|afford|spend)\b`)
	authorityYes  = regexp.MustCompile(`(?i)\b(yes|yeah|yep|sure|i do|i am|i'?m the|sole|decision\s*maker|i decide|my decision|final say)\b`)
	authorityNo   = regexp.MustCompile(`(?i)\b(no\b|nope|ask|check with|discuss with|not my call|my (wife|husband|partner|spouse|boss|board))\b`)
	authorityVague = regexp.MustCompile(`(?i)\b(maybe|not sure|depends|we'?ll see)\b`)
	needResidential = regexp.MustCompile(`(?i)\b(live|living|move in|family|residence|settle|home for (us|myself))\b`)
	needInvestment  = regexp.MustCompile(`(?i)\b(invest(ment)?|rental|rent (it )?out|yield|roi|flip|airbnb|passive income)\b`)
	needCommercial  = regexp.MustCompile(`(?i)\b(office|shop|commercial|warehouse|storefront|business premises)\b`)
	timelineNow     = regexp.MustCompile(`(?i)\b(asap|right away|immediately|as soon as possible|this (week|month))\b`)
	timelineWithin  = regexp.MustCompile(`(?i)\bwithin\s+(\d+)\s+months?\b`)
	timelineMonths  = regexp.MustCompile(`(?i)\b(\d+)\s*(?:-|to)\s*(\d+)\s+months?\b`)
	timelineNextFoo = regexp.MustCompile(`(?i)\bnext\s+(month|quarter|year)\b`)
)

// NormalizeBudget 把各种预算写法归一到 "<数字><单位>" 规范形式。
// "35M" / "25,000,000" / "2 million" / "15Mil" 等价金额产出同一规范值。
// 无法识别返回 nil，绝不猜测
func NormalizeBudget(raw string) *string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	m := budgetRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	numStr := strings.ReplaceAll(m[1], ",", "")
	value, err := strconv.ParseFloat(numStr, 64)
	if err != nil || value <= 0 {
		return nil
	}

	unit := strings.ToLower(m[2])
	switch unit {
	case "k":
		value *= 1_000
	case "m", "mil", "milion", "million":
		value *= 1_000_000
	case "b", "bn", "billion":
		value *= 1_000_000_000
	}

	// 无单位的小额数字大概率不是预算（"2 kids" / "3 bedrooms"），需要上下文线索
	if unit == "" && value < 10_000 && !budgetCueRe.MatchString(text) {
		return nil
	}

	canonical := formatAmount(value)
	return &canonical
}

func formatAmount(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return trimFloat(v/1_000_000_000) + "B"
	case v >= 1_000_000:
		return trimFloat(v/1_000_000) + "M"
	case v >= 1_000:
		return trimFloat(v/1_000) + "K"
	}
	return trimFloat(v)
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// NormalizeAuthority 归一化拍板权表述，三态 yes/no/unknown
func NormalizeAuthority(raw string) *string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	switch lower := strings.ToLower(text); lower {
	case AuthorityYes, AuthorityNo, AuthorityUnknown:
		v := lower
		return &v
	}

	// 否定与"要商量"优先于泛化的 yes 词表，"no, I need to ask my wife" 是 no
	if authorityNo.MatchString(text) {
		v := AuthorityNo
		return &v
	}
	if authorityVague.MatchString(text) {
		v := AuthorityUnknown
		return &v
	}
	if authorityYes.MatchString(text) {
		v := AuthorityYes
		return &v
	}
	return nil
}

// NormalizeNeed 归一化购房需求类目，无法归类返回 nil
func NormalizeNeed(raw string) *string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	switch lower := strings.ToLower(text); lower {
	case NeedResidential, NeedInvestment, NeedCommercial:
		v := lower
		return &v
	}

	if needInvestment.MatchString(text) {
		v := NeedInvestment
		return &v
	}
	if needCommercial.MatchString(text) {
		v := NeedCommercial
		return &v
	}
	if needResidential.MatchString(text) {
		v := NeedResidential
		return &v
	}
	return nil
}

// NormalizeTimeline 把相对时间表述归一到固定区间
func NormalizeTimeline(raw string) *string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	switch lower := strings.ToLower(text); lower {
	case TimelineImmediate, Timeline1To3, Timeline3To6, Timeline6To12, Timeline12Plus:
		v := lower
		return &v
	}

	if timelineNow.MatchString(text) {
		v := TimelineImmediate
		return &v
	}
	if m := timelineMonths.FindStringSubmatch(text); m != nil {
		if upper, err := strconv.Atoi(m[2]); err == nil {
			v := monthsToBucket(upper)
			return &v
		}
	}
	if m := timelineWithin.FindStringSubmatch(text); m != nil {
		if months, err := strconv.Atoi(m[1]); err == nil {
			v := monthsToBucket(months)
			return &v
		}
	}
	if m := timelineNextFoo.FindStringSubmatch(text); m != nil {
		var v string
		switch strings.ToLower(m[1]) {
		case "month":
			v = Timeline1To3
		case "quarter":
			v = Timeline3To6
		default:
			v = Timeline12Plus
		}
		return &v
	}
	return nil
}

func monthsToBucket(months int) string {
	switch {
	case months <= 1:
		return TimelineImmediate
	case months <= 3:
		return Timeline1To3
	case months <= 6:
		return Timeline3To6
	case months <= 12:
		return Timeline6To12
	}
	return Timeline12Plus
}

// PatternHints 对当前消息做确定性预提取，作为模型提取的先验
func PatternHints(message string) Extraction {
	return Extraction{
		Budget:    NormalizeBudget(message),
		Authority: NormalizeAuthority(message),
		Need:      NormalizeNeed(message),
		Timeline:  NormalizeTimeline(message),
	}
}
