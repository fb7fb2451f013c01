package port

type Tokenizer interface {
	CountTokens(text string) int

	Name() string
}
