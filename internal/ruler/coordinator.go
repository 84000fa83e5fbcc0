package ruler

// Token identifies the current ruler. Epoch grows with every transfer; zero means the
// sender does not stamp transfers.
type Token struct {
	RulerID string
	Epoch   uint64
}

// Supersedes reports whether t should replace current.
func (t Token) Supersedes(current Token) bool {
	if t.Epoch == 0 {
		return true
	}

	if t.Epoch != current.Epoch {
		return t.Epoch > current.Epoch
	}

	return t.RulerID > current.RulerID
}

// Coordinator holds the ruler token as seen by one participant.
type Coordinator struct {
	token Token
}

// Reset replaces the token unconditionally, as on connect.
func (c *Coordinator) Reset(t Token) {
	c.token = t
}

// Transfer applies and returns the token that hands rulership to target.
func (c *Coordinator) Transfer(target string) Token {
	c.token = Token{RulerID: target, Epoch: c.token.Epoch + 1}
	return c.token
}

// Apply adopts t if it supersedes the current token.
func (c *Coordinator) Apply(t Token) bool {
	if t.RulerID == "" || !t.Supersedes(c.token) {
		return false
	}

	if t.Epoch == 0 {
		t.Epoch = c.token.Epoch
	}

	c.token = t
	return true
}

func (c *Coordinator) Token() Token {
	return c.token
}

func (c *Coordinator) RulerID() string {
	return c.token.RulerID
}

func (c *Coordinator) IsRuler(selfID string) bool {
	return selfID != "" && selfID == c.token.RulerID
}
