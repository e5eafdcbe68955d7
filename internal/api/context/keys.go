package context

type Key string

const (
	User   Key = "user"
	Params Key = "params"
)
