//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd || solaris)

package identity

// System returns a Resolver that fails every lookup with ErrUnsupported.
func System() Resolver {
	return systemResolver{}
}

type systemResolver struct{}

func (systemResolver) UserName(int) (string, error)  { return "", ErrUnsupported }
func (systemResolver) GroupName(int) (string, error) { return "", ErrUnsupported }
func (systemResolver) UserID(string) (int, error)    { return 0, ErrUnsupported }
func (systemResolver) GroupID(string) (int, error)   { return 0, ErrUnsupported }
