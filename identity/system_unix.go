//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd || solaris

package identity

import "github.com/moby/sys/user"

// System returns a Resolver backed by the host's passwd and group databases.
func System() Resolver {
	return systemResolver{}
}

type systemResolver struct{}

func (systemResolver) UserName(uid int) (string, error) {
	u, err := user.LookupUid(uid)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

func (systemResolver) GroupName(gid int) (string, error) {
	g, err := user.LookupGid(gid)
	if err != nil {
		return "", err
	}
	return g.Name, nil
}

func (systemResolver) UserID(name string) (int, error) {
	u, err := user.LookupUser(name)
	if err != nil {
		return 0, err
	}
	return u.Uid, nil
}

func (systemResolver) GroupID(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return g.Gid, nil
}
