package bant

// State 单个会话的 BANT 采集累加器。
// 字段一经成功提取置为非空，只能被后续明确给出新值的提取覆盖，
// 绝不允许被 null 回退
type State struct {
	Budget    *string `json:"budget"`
	Authority *string `json:"authority"`
	Need      *string `json:"need"`
	Timeline  *string `json:"timeline"`
	Completed bool    `json:"completed"`
}

// Extraction 一次提取产出的字段集合，nil 表示本轮未提取到
type Extraction struct {
	Budget    *string `json:"budget"`
	Authority *string `json:"authority"`
	Need      *string `json:"need"`
	Timeline  *string `json:"timeline"`
}

// Merge 状态机核心合并策略：新值非空则覆盖，否则保留旧值。
// Completed 为派生字段，四项齐全即置位
func Merge(prior State, ex Extraction) State {
	next := State{
		Budget:    mergeField(prior.Budget, ex.Budget),
		Authority: mergeField(prior.Authority, ex.Authority),
		Need:      mergeField(prior.Need, ex.Need),
		Timeline:  mergeField(prior.Timeline, ex.Timeline),
	}
	next.Completed = next.Budget != nil && next.Authority != nil && next.Need != nil && next.Timeline != nil
	return next
}

func mergeField(old, new *string) *string {
	if new != nil && *new != "" {
		v := *new
		return &v
	}
	if old == nil {
		return nil
	}
	v := *old
	return &v
}

// NextMissingField 按固定优先级返回下一个待采集字段，采集完成返回空串
func (s State) NextMissingField() string {
	switch {
	case s.Budget == nil:
		return "budget"
	case s.Authority == nil:
		return "authority"
	case s.Need == nil:
		return "need"
	case s.Timeline == nil:
		return "timeline"
	}
	return ""
}

// IsEmpty 四项均未采集
func (s State) IsEmpty() bool {
	return s.Budget == nil && s.Authority == nil && s.Need == nil && s.Timeline == nil
}
