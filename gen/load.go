package gen

import (
	"fmt"
	"go/ast"
	"go/types"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/wippyai/hostffi/errors"
)

// Load loads the native package matched by patterns (cfg.Package when
// patterns is empty) and builds its export model.
func Load(patterns []string, cfg *Config) (*PackageModel, error) {
	if cfg == nil {
		cfg = DefaultConfig("")
	}
	if len(patterns) == 0 {
		if cfg.Package == "" {
			return nil, errors.InvalidInput(errors.PhaseGenerate, "no package to load")
		}
		patterns = []string{cfg.Package}
	}

	pcfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax,
		Dir:  cfg.Dir,
	}

	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading %v: %w", patterns, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %v", patterns)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("%v matches %d packages, exports must come from one", patterns, len(pkgs))
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors)
	}
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", pkg.PkgPath)
	}

	return ModelFromTypes(pkg.Types, cfg, pkg.Syntax...)
}

// ModelFromTypes builds the export model of a type-checked package. Files
// are optional and only used to read export directives.
//
// Without Include, every exported top-level function is a candidate and
// ineligible ones are skipped and recorded in Skipped. Functions named in
// Include, in [names] or by a directive are requested explicitly; if one of
// them is ineligible the whole run fails.
func ModelFromTypes(pkg *types.Package, cfg *Config, files ...*ast.File) (*PackageModel, error) {
	if cfg == nil {
		cfg = DefaultConfig(pkg.Path())
	}
	if pkg.Name() == "main" {
		return nil, errors.InvalidInput(errors.PhaseGenerate,
			fmt.Sprintf("%s is a main package and cannot be imported", pkg.Path()))
	}

	dirs := directives(files)
	alias := packageAlias(pkg.Name())
	log := Logger().With(zap.String("package", pkg.Path()))

	model := &PackageModel{
		ImportPath: pkg.Path(),
		Name:       pkg.Name(),
	}
	scope := pkg.Scope()

	for _, list := range [][]string{cfg.Include, mapKeys(cfg.Names)} {
		for _, name := range list {
			if _, ok := scope.Lookup(name).(*types.Func); !ok {
				return nil, errors.NotFound(errors.PhaseGenerate, "function", pkg.Path()+"."+name)
			}
		}
	}

	owner := map[string]string{}
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		_, marked := dirs[name]
		requested := marked || cfg.requested(name)
		if !requested && !cfg.included(name) {
			continue
		}

		fm, err := functionModel(fn)
		if err != nil {
			if requested {
				return nil, err
			}
			log.Info("skipping function", zap.String("function", name), zap.Error(err))
			model.Skipped = append(model.Skipped, err)
			continue
		}

		fm.Export = externalName(name, cfg, dirs)
		if err := validateName(name, fm.Export, alias); err != nil {
			return nil, err
		}
		if prev, ok := owner[fm.Export]; ok {
			return nil, errors.DuplicateName(errors.PhaseGenerate, fm.Export, prev, name)
		}
		owner[fm.Export] = name

		log.Debug("exporting function", zap.String("function", name), zap.String("symbol", fm.Export))
		model.Functions = append(model.Functions, fm)
	}

	if cfg.EmitLastError {
		sym := cfg.Prefix + "last_error"
		if prev, ok := owner[sym]; ok {
			return nil, errors.DuplicateName(errors.PhaseGenerate, sym, prev, "the last error export")
		}
	}

	return model, nil
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
