package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/everydev1618/botlang/tools"
)

var scopeParam = tools.ParamDef{
	Type:        "string",
	Description: "bot (default) keeps the item private to the running bot; global shares it",
	Default:     "bot",
	Enum:        []string{"bot", "global"},
}

// namespace resolves where a call reads and writes. Items are private to
// the running bot unless scope is "global"; top-level statements always
// use the global namespace.
func namespace(args map[string]any, env tools.Env) string {
	if scope, _ := args["scope"].(string); scope == "global" || env == nil || env.Bot() == "" {
		return GlobalNamespace
	}
	return env.Bot()
}

func keyArg(args map[string]any) (string, error) {
	key, _ := args["key"].(string)
	if key == "" {
		return "", fmt.Errorf("%w: key must be a non-empty string", tools.ErrInvalidArgs)
	}
	return key, nil
}

// RegisterTools registers memory.get, memory.set, memory.delete and
// memory.list backed by store.
func RegisterTools(t *tools.Tools, store Store) error {
	var errs []error

	errs = append(errs, t.Register("memory.get", tools.Def{
		Description: "Read a remembered value. Returns default when the key is unknown.",
		Params: map[string]tools.ParamDef{
			"key":     {Type: "string", Description: "Key to read", Required: true},
			"default": {Type: "any", Description: "Value returned when the key is missing"},
			"scope":   scopeParam,
		},
		Fn: func(ctx context.Context, args map[string]any, env tools.Env) (any, error) {
			key, err := keyArg(args)
			if err != nil {
				return nil, err
			}
			item, found, err := store.Get(ctx, namespace(args, env), key)
			if err != nil {
				return nil, err
			}
			value := args["default"]
			if found {
				value = item.Value
			}
			return map[string]any{
				"success": true,
				"data":    map[string]any{"key": key, "value": value, "found": found},
			}, nil
		},
	}))

	errs = append(errs, t.Register("memory.set", tools.Def{
		Description: "Remember a value across runs.",
		Params: map[string]tools.ParamDef{
			"key":   {Type: "string", Description: "Key to write", Required: true},
			"value": {Type: "any", Description: "Value to store", Required: true},
			"scope": scopeParam,
		},
		Fn: func(ctx context.Context, args map[string]any, env tools.Env) (any, error) {
			key, err := keyArg(args)
			if err != nil {
				return nil, err
			}
			if err := store.Set(ctx, namespace(args, env), key, args["value"]); err != nil {
				return nil, err
			}
			return map[string]any{
				"success": true,
				"data":    map[string]any{"key": key, "value": args["value"]},
			}, nil
		},
	}))

	errs = append(errs, t.Register("memory.delete", tools.Def{
		Description: "Forget a remembered value.",
		Params: map[string]tools.ParamDef{
			"key":   {Type: "string", Description: "Key to delete", Required: true},
			"scope": scopeParam,
		},
		Fn: func(ctx context.Context, args map[string]any, env tools.Env) (any, error) {
			key, err := keyArg(args)
			if err != nil {
				return nil, err
			}
			deleted, err := store.Delete(ctx, namespace(args, env), key)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success": true,
				"data":    map[string]any{"key": key, "deleted": deleted},
			}, nil
		},
	}))

	errs = append(errs, t.Register("memory.list", tools.Def{
		Description: "List remembered values, optionally filtered by key prefix.",
		Params: map[string]tools.ParamDef{
			"prefix": {Type: "string", Description: "Only keys starting with this prefix"},
			"scope":  scopeParam,
		},
		Fn: func(ctx context.Context, args map[string]any, env tools.Env) (any, error) {
			prefix, _ := args["prefix"].(string)
			items, err := store.List(ctx, namespace(args, env), prefix)
			if err != nil {
				return nil, err
			}
			keys := make([]any, len(items))
			values := make(map[string]any, len(items))
			for i, item := range items {
				keys[i] = item.Key
				values[item.Key] = item.Value
			}
			return map[string]any{
				"success": true,
				"data":    map[string]any{"keys": keys, "values": values, "count": len(items)},
			}, nil
		},
	}))

	return errors.Join(errs...)
}
