// Package options provides the flags and configuration for the kb-server.
package options

import (
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	kb "github.com/kart-io/knowledge-x/internal/kb"
	"github.com/kart-io/knowledge-x/pkg/infra/app/cliflag"
	dbopts "github.com/kart-io/knowledge-x/pkg/options/db"
	kbopts "github.com/kart-io/knowledge-x/pkg/options/kb"
	llmopts "github.com/kart-io/knowledge-x/pkg/options/llm"
	logopts "github.com/kart-io/knowledge-x/pkg/options/logger"
	milvusopts "github.com/kart-io/knowledge-x/pkg/options/milvus"
	redisopts "github.com/kart-io/knowledge-x/pkg/options/redis"
	httpopts "github.com/kart-io/knowledge-x/pkg/options/server/http"
)

// ServerOptions contains the configurable options of the kb-server.
type ServerOptions struct {
	LogOptions    *logopts.Options           `json:"log" mapstructure:"log"`
	HTTPOptions   *httpopts.Options          `json:"http" mapstructure:"http"`
	DBOptions     *dbopts.Options            `json:"db" mapstructure:"db"`
	RedisOptions  *redisopts.Options         `json:"redis" mapstructure:"redis"`
	MilvusOptions *milvusopts.Options        `json:"milvus" mapstructure:"milvus"`
	LLMOptions    *llmopts.ProviderOptions   `json:"embedding" mapstructure:"embedding"`
	KBOptions     *kbopts.Options            `json:"kb" mapstructure:"kb"`

	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates ServerOptions with defaults.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		LogOptions:      logopts.NewOptions(),
		HTTPOptions:     httpopts.NewOptions(),
		DBOptions:       dbopts.NewOptions(),
		RedisOptions:    redisopts.NewOptions(),
		MilvusOptions:   milvusopts.NewOptions(),
		LLMOptions:      llmopts.NewProviderOptions(),
		KBOptions:       kbopts.NewOptions(),
		ShutdownTimeout: 30 * time.Second,
	}
}

// Flags returns flags grouped by section.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.DBOptions.AddFlags(fss.FlagSet("db"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.LLMOptions.AddFlags(fss.FlagSet("embedding"))
	o.KBOptions.AddFlags(fss.FlagSet("kb"))

	misc := fss.FlagSet("misc")
	misc.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")

	return fss
}

// Complete fills in defaults that depend on other options.
func (o *ServerOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	return o.LLMOptions.Complete()
}

// Validate checks all option sections.
func (o *ServerOptions) Validate() error {
	var errs []error

	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.DBOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.LLMOptions.Validate()...)
	errs = append(errs, o.KBOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds the server Config from the validated options.
func (o *ServerOptions) Config() (*kb.Config, error) {
	return &kb.Config{
		LogOptions:      o.LogOptions,
		HTTPOptions:     o.HTTPOptions,
		DBOptions:       o.DBOptions,
		RedisOptions:    o.RedisOptions,
		MilvusOptions:   o.MilvusOptions,
		LLMOptions:      o.LLMOptions,
		KBOptions:       o.KBOptions,
		ShutdownTimeout: o.ShutdownTimeout,
	}, nil
}
