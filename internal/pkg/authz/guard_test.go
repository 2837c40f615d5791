// internal/pkg/authz/guard_test.go
package authz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pedidos/internal/pkg/identity"
)

// fakeEngine 返回预设的判定结果。
type fakeEngine struct {
	allowed bool
	err     error
}

func (e *fakeEngine) Allow(Facts) (bool, error) {
	return e.allowed, e.err
}

func TestGuard_BuiltinPolicy(t *testing.T) {
	guard := NewGuard(nil)

	standard := identity.Identity{UserID: "u-1", Role: identity.RoleStandard}
	privileged := identity.Identity{UserID: "ops-1", Role: identity.RolePrivileged}

	tests := []struct {
		name     string
		id       identity.Identity
		ownerID  string
		hasOwner bool
		wantErr  error
	}{
		{"standard accesses own resource", standard, "u-1", true, nil},
		{"standard denied foreign resource", standard, "u-2", true, ErrNotAuthorized},
		{"standard denied missing resource", standard, "", false, ErrNotAuthorized},
		{"privileged accesses foreign resource", privileged, "u-2", true, nil},
		{"privileged accesses missing resource", privileged, "", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Authorize(tt.id, tt.ownerID, tt.hasOwner)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// 不存在的资源与不属于请求方的资源对标准角色必须呈现同一种拒绝。
func TestGuard_MissingAndForeignAreIndistinguishable(t *testing.T) {
	guard := NewGuard(nil)
	standard := identity.Identity{UserID: "u-1", Role: identity.RoleStandard}

	errForeign := guard.Authorize(standard, "u-2", true)
	errMissing := guard.Authorize(standard, "", false)

	assert.ErrorIs(t, errForeign, ErrNotAuthorized)
	assert.ErrorIs(t, errMissing, ErrNotAuthorized)
	assert.Equal(t, errForeign, errMissing)
}

func TestGuard_FailsClosedOnEngineError(t *testing.T) {
	guard := NewGuard(&fakeEngine{err: errors.New("evaluation blew up")})
	privileged := identity.Identity{UserID: "ops-1", Role: identity.RolePrivileged}

	err := guard.Authorize(privileged, "u-2", true)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestGuard_DelegatesToEngine(t *testing.T) {
	guard := NewGuard(&fakeEngine{allowed: true})
	standard := identity.Identity{UserID: "u-1", Role: identity.RoleStandard}

	assert.NoError(t, guard.Authorize(standard, "u-2", true))
}
