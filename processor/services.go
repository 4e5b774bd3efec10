package processor

import (
	"github.com/jhump/autoserv/registry"
)

func init() {
	RegisterProcessor("services", func() Processor { return &ServicesProcessor{} })
}

// ServicesProcessor writes service registry files for types annotated with
// @autoserv.Provides. Providers are collected from every package and the
// files are written in the terminal round, merged with any that already
// exist under the output directory.
type ServicesProcessor struct {
	driver *registry.Driver
}

func (p *ServicesProcessor) Init(env *Environment) error {
	p.driver = registry.NewDriver(registry.Environment{
		Options:  env.Options,
		Types:    env.Types,
		Filer:    env.Filer,
		Messager: env.Messager,
		Logger:   env.Logger,
	}, registry.WithAnnotation(ProvidesAnnotation), registry.WithSuppressAnnotation(SuppressWarningsAnnotation))
	return nil
}

func (p *ServicesProcessor) Process(round *Round) error {
	p.driver.Process(round)
	return nil
}

// Driver returns the underlying registry driver.
func (p *ServicesProcessor) Driver() *registry.Driver {
	return p.driver
}
