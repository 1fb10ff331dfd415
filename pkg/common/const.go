package common

const (
	KEY_POSITION_SUMMARY = "position_summary:%d"
	KEY_POSITION_SERIES  = "position:%s:%s:%s:%s"
)

const (
	LOCK_BACKEND_MEMORY = "memory"
	LOCK_BACKEND_REDIS  = "redis"
)

func GetLockBackendList() []string {
	return []string{
		LOCK_BACKEND_MEMORY,
		LOCK_BACKEND_REDIS,
	}
}
