//go:build windows

package bridge

import "golang.org/x/sys/windows"

// isAdminContext reports whether the current process token carries the
// built-in Administrators group, mirroring the elevation check the memory
// reader needs before it can attach to an admin-protected target process.
func isAdminContext() bool {
	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	token := windows.Token(0)
	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}
