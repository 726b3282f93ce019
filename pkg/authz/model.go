package authz

// DomainRBACModel is the casbin model used for department scoped roles:
// subjects are grouped into roles per domain and policies grant object
// actions to roles.
const DomainRBACModel = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub, r.dom) && r.dom == p.dom && r.obj == p.obj && (r.act == p.act || p.act == "*")
`
