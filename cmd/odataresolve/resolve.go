package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	odata "github.com/nlstn/odata-resolver"
	"github.com/nlstn/odata-resolver/internal/observability"
	"github.com/nlstn/odata-resolver/internal/version"
)

func newResolveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <kind> [identifier]",
		Short: "Resolve one identifier and print the result as JSON",
		Long: `Resolve one identifier and print the result as JSON.

Kinds: ` + strings.Join(kinds, ", ") + `

Examples:
  odataresolve -m shop.yaml resolve navigation-source Products
  odataresolve -m shop.yaml -i resolve property name --type Shop.Customer
  odataresolve -m shop.yaml --alternate-keys resolve key Products --key "(Code='A1')"
  odataresolve -m shop.yaml --unqualified resolve bound-operation Rate --type Shop.Product
  odataresolve -m shop.yaml --enum-as-string resolve parameters Rate --type Shop.Product --arg rating=5 --arg color="'Blue'"
  odataresolve -m shop.yaml resolve promote Price --type Shop.Product --op gt --value 42`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request{Kind: args[0]}
			if len(args) > 1 {
				req.Name = args[1]
			}
			req.Type, _ = cmd.Flags().GetString("type")
			req.Key, _ = cmd.Flags().GetString("key")
			req.Operator, _ = cmd.Flags().GetString("op")
			req.Value, _ = cmd.Flags().GetString("value")

			pairs, _ := cmd.Flags().GetStringArray("arg")
			var err error
			if req.Args, err = parseArgs(pairs); err != nil {
				return err
			}

			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(); cerr != nil {
					a.logger.Warn("failed to close audit store", "error", cerr)
				}
			}()

			res, err := a.resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringP("type", "t", "", "Structured type, entity type or binding type scoping the identifier")
	cmd.Flags().StringP("key", "k", "", "Key predicate, e.g. (1) or (OrderID=1,LineNo=2)")
	cmd.Flags().String("op", "eq", "Binary operator for promote")
	cmd.Flags().String("value", "", "Right operand constant for promote")
	cmd.Flags().StringArray("arg", nil, "Operation argument as name=constant; repeatable")
	return cmd
}

// resolve runs req inside a resolution span with an observer bound to it.
func (a *app) resolve(ctx context.Context, req request) (*result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tracer := a.obs.Tracer()
	ctx, span := tracer.StartResolution(ctx, req.Kind, req.Name, req.Type)
	defer span.End()

	r := a.resolverFor(ctx).With(odata.WithObserver(a.obs.Observer(ctx)))
	res, err := run(r, a.model, req)
	if err != nil {
		tracer.RecordError(span, err)
		observability.LoggerWithTrace(ctx, a.logger).Debug("resolution request failed",
			observability.LogFieldElement, req.Kind,
			observability.LogFieldIdentifier, req.Name,
			observability.LogFieldError, err.Error())
		return nil, err
	}
	return res, nil
}

// resolverFor turns off the rules the version negotiated for ctx does not
// allow.
func (a *app) resolverFor(ctx context.Context) *odata.Resolver {
	v := version.FromContext(ctx)
	cfg := a.resolver.Config()

	var opts []odata.Option
	if cfg.CaseInsensitive && !v.Supports(version.CaseInsensitiveIdentifiers) {
		opts = append(opts, odata.WithCaseInsensitive(false))
	}
	if cfg.UnqualifiedOperations && !v.Supports(version.UnqualifiedOperations) {
		opts = append(opts, odata.WithUnqualifiedOperations(false))
	}
	if cfg.EnumAsString && !v.Supports(version.UnprefixedEnumLiterals) {
		opts = append(opts, odata.WithEnumAsString(false))
	}
	if len(opts) == 0 {
		return a.resolver
	}
	return a.resolver.With(opts...)
}

func parseArgs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	args := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid argument %q; expected name=constant", pair)
		}
		args[name] = strings.TrimSpace(value)
	}
	return args, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
