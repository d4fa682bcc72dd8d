package consts

const (
	BantStateKey = "bant:state:"
)

const (
	ConversationLock = "conversation:turn:lock:"
)
