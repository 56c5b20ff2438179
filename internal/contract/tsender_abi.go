package contract

// TSender batches ERC-20 transfers: the caller approves the contract for the
// total and airdropERC20 pulls and distributes it in one transaction.
func init() {
	RegisterBuiltin("tsender", "TSender",
		"Gas-optimised ERC-20 airdrop contract.",
		tsenderABI)
}

const tsenderABI = `[
  {"type":"function","name":"airdropERC20","stateMutability":"nonpayable",
   "inputs":[
     {"name":"tokenAddress","type":"address"},
     {"name":"recipients","type":"address[]"},
     {"name":"amounts","type":"uint256[]"},
     {"name":"totalAmount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"areListsValid","stateMutability":"pure",
   "inputs":[
     {"name":"recipients","type":"address[]"},
     {"name":"amounts","type":"uint256[]"}],
   "outputs":[{"name":"","type":"bool"}]}
]`
