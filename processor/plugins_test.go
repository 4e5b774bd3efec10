package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProcessor struct {
	inits, rounds, terminal int
}

func (p *countingProcessor) Init(*Environment) error {
	p.inits++
	return nil
}

func (p *countingProcessor) Process(round *Round) error {
	if round.ProcessingOver() {
		p.terminal++
	} else {
		p.rounds++
	}
	return nil
}

func TestRegisteredProcessors(t *testing.T) {
	names := AllRegisteredProcessors()
	assert.Subset(t, names, []string{"services", "tostring", "setters", "immutable"})

	procs, err := NewProcessors("services", "immutable")
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.IsType(t, &ServicesProcessor{}, procs[0])
	assert.IsType(t, &ImmutableProcessor{}, procs[1])

	_, err = NewProcessors("services", "nope")
	assert.EqualError(t, err, `no processor named "nope"`)
}

func TestRegisterProcessor(t *testing.T) {
	var created []*countingProcessor
	RegisterProcessor("counting", func() Processor {
		p := &countingProcessor{}
		created = append(created, p)
		return p
	})
	procs, err := NewProcessors("counting")
	require.NoError(t, err)
	assert.Len(t, created, 1)

	l := newTestLoader(t)
	a := l.load("example.com/a", "package a\n")
	b := l.load("example.com/b", "package b\n")
	cfg := Config{Processors: procs, OutputDir: t.TempDir(), Logger: quietLogger}
	require.NoError(t, cfg.Run([]*Package{a, b}))

	p := created[0]
	assert.Equal(t, 1, p.inits)
	assert.Equal(t, 2, p.rounds)
	assert.Equal(t, 1, p.terminal)
}
