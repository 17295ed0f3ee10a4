package interfaces

// Backends 一个进程使用的全部外部服务
type Backends struct {
	Identity  IdentityService
	Directory DirectoryService
	Relay     RelayService
	Transport Transport
}

// Complete 是否四项服务都已提供
func (b Backends) Complete() bool {
	return b.Identity != nil && b.Directory != nil && b.Relay != nil && b.Transport != nil
}
