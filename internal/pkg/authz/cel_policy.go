// internal/pkg/authz/cel_policy.go
package authz

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// DefaultPolicy 与内置判定逻辑等价的 CEL 表达式。
// 部署方可以在配置中替换它来收紧或放宽访问策略。
const DefaultPolicy = `role == "PRIVILEGED" || (has_owner && requester_id == owner_id)`

// CELPolicyEngine 是 PolicyEngine 接口的 CEL 实现。
// 它将第三方表达式引擎的 API 适配到我们自己的守卫接口上。
type CELPolicyEngine struct {
	program cel.Program
}

// NewCELPolicyEngine 编译给定的策略表达式。
// 表达式必须返回 bool，可引用 requester_id、role、owner_id、has_owner 四个变量。
func NewCELPolicyEngine(expr string) (*CELPolicyEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("requester_id", cel.StringType),
		cel.Variable("role", cel.StringType),
		cel.Variable("owner_id", cel.StringType),
		cel.Variable("has_owner", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid policy expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(types.BoolType) {
		return nil, fmt.Errorf("policy expression must evaluate to bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy program: %w", err)
	}
	return &CELPolicyEngine{program: program}, nil
}

// Allow 实现 PolicyEngine 接口。
func (e *CELPolicyEngine) Allow(facts Facts) (bool, error) {
	out, _, err := e.program.Eval(map[string]interface{}{
		"requester_id": facts.RequesterID,
		"role":         string(facts.Role),
		"owner_id":     facts.OwnerID,
		"has_owner":    facts.HasOwner,
	})
	if err != nil {
		return false, err
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy returned non-bool value: %v", out.Value())
	}
	return allowed, nil
}
