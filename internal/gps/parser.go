package gps

// Options configures a Parser. The zero value reproduces plain receiver
// behavior: no checksum verification, DefaultMaxSentenceBytes.
type Options struct {
	MaxSentenceBytes int
	VerifyChecksum   bool

	// Observer, if set, sees every terminal outcome.
	Observer Observer

	// OnSentence, if set, is called for every '$' line after dispatch with
	// the dispatch outcome. It runs on the feeding goroutine and should not
	// block.
	OnSentence func(sentence string, kind Kind, out Outcome)
}

// Parser wires Accumulator -> Router -> FixState. It is not safe for
// concurrent Feed calls; its FixState is safe to read concurrently.
type Parser struct {
	acc    *Accumulator
	router Router
	state  *FixState
	opts   Options
	count  counters
}

func NewParser(opts Options) *Parser {
	return &Parser{
		acc:    NewAccumulator(opts.MaxSentenceBytes),
		router: Router{VerifyChecksum: opts.VerifyChecksum},
		state:  NewFixState(),
		opts:   opts,
	}
}

func (p *Parser) State() *FixState {
	return p.state
}

func (p *Parser) Stats() Stats {
	return p.count.stats()
}

// Feed consumes one input byte and reports what happened to it. Only the
// byte completing a line can return a dispatch outcome.
func (p *Parser) Feed(b byte) Outcome {
	p.count.bytes.Add(1)
	line, out := p.acc.Feed(b)
	if line == nil {
		if out.Terminal() {
			p.finish(KindUnknown, out)
		}
		return out
	}

	sentence := string(line)
	kind, out := p.router.Dispatch(p.state, sentence)
	p.finish(kind, out)
	if p.opts.OnSentence != nil {
		p.opts.OnSentence(sentence, kind, out)
	}
	return out
}

// Write feeds every byte of b. It never fails, so a Parser can be the
// destination of io.Copy.
func (p *Parser) Write(b []byte) (int, error) {
	for _, c := range b {
		p.Feed(c)
	}
	return len(b), nil
}

func (p *Parser) finish(kind Kind, out Outcome) {
	p.count.add(out)
	if p.opts.Observer != nil {
		p.opts.Observer.ObserveSentence(kind, out)
	}
}
