package types

// Markdown is a chunk of markdown text together with its trust flag.
// Trusted content may render embedded command links; the flag travels
// with the value so that merged runs keep the trust of their first
// fragment.
type Markdown struct {
	Value   string `json:"value"`
	Trusted bool   `json:"trusted,omitempty"`
}

// Append returns the concatenation of m and other, keeping m's trust flag.
func (m Markdown) Append(other Markdown) Markdown {
	return Markdown{Value: m.Value + other.Value, Trusted: m.Trusted}
}
