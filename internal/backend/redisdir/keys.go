package redisdir

// keyspace 键名生成
type keyspace string

func (k keyspace) room(id string) string   { return string(k) + ":room:" + id }
func (k keyspace) code(code string) string { return string(k) + ":code:" + code }
func (k keyspace) beat(id string) string   { return string(k) + ":beat:" + id }
func (k keyspace) events(id string) string { return string(k) + ":events:" + id }
func (k keyspace) rooms() string           { return string(k) + ":rooms" }
func (k keyspace) seq() string             { return string(k) + ":seq" }
