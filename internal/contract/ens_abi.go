package contract

// ENS registry and public resolver, the two calls needed for forward
// resolution:
//
//	resolver(bytes32) → 0x0178b8bf
//	addr(bytes32)     → 0x3b3b57de
func init() {
	RegisterBuiltin("ens-registry", "ENS Registry",
		"Maps a namehash to its resolver contract.",
		ensRegistryABI)
	RegisterBuiltin("ens-resolver", "ENS Resolver",
		"Maps a namehash to an address.",
		ensResolverABI)
}

const ensRegistryABI = `[
  {"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

const ensResolverABI = `[
  {"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`
