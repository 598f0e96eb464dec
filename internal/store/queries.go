package store

// The query catalog. Callers address queries symbolically by (schema, id);
// SQL text never crosses the store boundary. Grouped by schema the same way
// the relational model is: "security" holds users, profiles, objects, methods
// and grants; "public" holds people and the board domain rows.
var catalog = map[string]map[string]string{
	"security": {
		"loadPermission": `
			SELECT pm.fk_id_profile AS id_profile, o.object, m.method
			FROM security.permission_method pm
			JOIN security.method m ON m.id_method = pm.fk_id_method
			JOIN security.object o ON o.id_object = m.fk_id_object`,
		"loadMenu": `
			SELECT pu.fk_id_profile AS id_profile, pu.menu, pu.fk_id_module
			FROM security.permission_menu pu`,
		"insertAudit": `
			INSERT INTO security.audit (fk_id_user, method, fk_id_profile, executed_at)
			VALUES ($1, $2, $3, $4)`,

		"getUser": `
			SELECT id_user, email, password, fk_id_person
			FROM security."user" WHERE email = $1`,
		"getUserByEmail": `
			SELECT id_user, email FROM security."user" WHERE email = $1`,
		"getUserByNumberId": `
			SELECT id_user, email, password FROM security."user"
			WHERE number_id = $1`,
		"getUserProfiles": `
			SELECT up.fk_id_profile, p.profile
			FROM security.user_profile up
			JOIN security.profile p ON p.id_profile = up.fk_id_profile
			JOIN security."user" u ON u.id_user = up.fk_id_user
			WHERE u.email = $1
			ORDER BY up.fk_id_profile`,
		"getUsers": `
			SELECT u.id_user, u.email, u.number_id, u.fk_id_person,
			       pe.name, pe.last_name, pe.birth_date,
			       ARRAY_AGG(up.fk_id_profile) AS profiles
			FROM security."user" u
			JOIN public.person pe ON pe.id_person = u.fk_id_person
			LEFT JOIN security.user_profile up ON up.fk_id_user = u.id_user
			GROUP BY u.id_user, pe.id_person
			ORDER BY u.id_user`,
		"getUserById": `
			SELECT id_user, fk_id_person FROM security."user"
			WHERE id_user = ANY($1)`,
		"createUser": `
			INSERT INTO security."user" (email, password, number_id, fk_id_person)
			VALUES ($1, $2, $3, $4) RETURNING id_user`,
		"updateUser": `
			UPDATE security."user" SET email = $1, number_id = $2
			WHERE id_user = $3`,
		"updatePassword": `
			UPDATE security."user" SET password = $1 WHERE email = $2`,
		"updateUserEmail": `
			UPDATE security."user" SET email = $1
			WHERE number_id = $2`,
		"deleteUser": `
			DELETE FROM security."user" WHERE id_user = ANY($1)`,

		"createUserProfile": `
			INSERT INTO security.user_profile (fk_id_user, fk_id_profile)
			VALUES ($1, $2)`,
		"deleteUserProfileByUserId": `
			DELETE FROM security.user_profile WHERE fk_id_user = ANY($1)`,
		"deleteUserProfilesByProfiles": `
			DELETE FROM security.user_profile WHERE fk_id_profile = ANY($1)`,

		"getProfiles": `
			SELECT id_profile, profile FROM security.profile ORDER BY id_profile`,
		"createProfile": `
			INSERT INTO security.profile (profile) VALUES ($1)`,
		"updateProfile": `
			UPDATE security.profile SET profile = $1 WHERE id_profile = $2`,
		"deleteProfiles": `
			DELETE FROM security.profile WHERE id_profile = ANY($1)`,

		"getObjects": `
			SELECT id_object, object FROM security.object ORDER BY id_object`,
		"createObject": `
			INSERT INTO security.object (object) VALUES ($1)`,
		"updateObject": `
			UPDATE security.object SET object = $1 WHERE id_object = $2`,
		"deleteObjects": `
			DELETE FROM security.object WHERE id_object = ANY($1)`,

		"getMethods": `
			SELECT m.id_method, m.method, m.fk_id_object, o.object
			FROM security.method m
			JOIN security.object o ON o.id_object = m.fk_id_object
			ORDER BY m.id_method`,
		"createMethod": `
			INSERT INTO security.method (method, fk_id_object) VALUES ($1, $2)`,
		"updateMethod": `
			UPDATE security.method SET method = $1, fk_id_object = $2
			WHERE id_method = $3`,
		"deleteMethods": `
			DELETE FROM security.method WHERE id_method = ANY($1)`,
		"deleteMethodsByObjectIds": `
			DELETE FROM security.method WHERE fk_id_object = ANY($1)`,

		"getPermissionMethods": `
			SELECT pm.id_permission_method, pm.fk_id_profile, pm.fk_id_method,
			       p.profile, m.method, o.object
			FROM security.permission_method pm
			JOIN security.profile p ON p.id_profile = pm.fk_id_profile
			JOIN security.method m ON m.id_method = pm.fk_id_method
			JOIN security.object o ON o.id_object = m.fk_id_object
			ORDER BY pm.id_permission_method`,
		"createPermissionMethod": `
			INSERT INTO security.permission_method (fk_id_profile, fk_id_method)
			VALUES ($1, $2)`,
		"updatePermissionMethod": `
			UPDATE security.permission_method
			SET fk_id_profile = $1, fk_id_method = $2
			WHERE id_permission_method = $3`,
		"deletePermissionMethods": `
			DELETE FROM security.permission_method
			WHERE id_permission_method = ANY($1)`,
		"deletePermissionMethodsByMethodIds": `
			DELETE FROM security.permission_method WHERE fk_id_method = ANY($1)`,
		"deletePermissionMethodsByObjectIds": `
			DELETE FROM security.permission_method pm
			USING security.method m
			WHERE m.id_method = pm.fk_id_method AND m.fk_id_object = ANY($1)`,
		"deletePermissionMethodsByProfiles": `
			DELETE FROM security.permission_method WHERE fk_id_profile = ANY($1)`,
		"deletePermissionsByProfile": `
			DELETE FROM security.permission_method WHERE fk_id_profile = $1`,

		"getPermissionMenus": `
			SELECT id_permission_menu, fk_id_profile, menu, fk_id_module
			FROM security.permission_menu ORDER BY id_permission_menu`,
		"createPermissionMenu": `
			INSERT INTO security.permission_menu (fk_id_profile, menu, fk_id_module)
			VALUES ($1, $2, $3)`,
		"updatePermissionMenu": `
			UPDATE security.permission_menu
			SET fk_id_profile = $1, menu = $2, fk_id_module = $3
			WHERE id_permission_menu = $4`,
		"deletePermissionMenus": `
			DELETE FROM security.permission_menu
			WHERE id_permission_menu = ANY($1)`,
		"deletePermissionMenusByProfiles": `
			DELETE FROM security.permission_menu WHERE fk_id_profile = ANY($1)`,
	},
	"public": {
		"createPerson": `
			INSERT INTO public.person (name, last_name, birth_date)
			VALUES ($1, $2, $3) RETURNING id_person`,
		"updatePerson": `
			UPDATE public.person SET name = $1, last_name = $2, birth_date = $3
			WHERE id_person = $4`,
		"deletePerson": `
			DELETE FROM public.person WHERE id_person = ANY($1)`,

		"createBoard": `
			INSERT INTO public.board (name, description, created_by)
			VALUES ($1, $2, $3) RETURNING id_board`,
		"addBoardMember": `
			INSERT INTO public.board_member (fk_id_board, fk_id_user, role)
			VALUES ($1, $2, $3)`,
		"getBoardsByUser": `
			SELECT b.id_board, b.name, b.description, bm.role
			FROM public.board b
			JOIN public.board_member bm ON bm.fk_id_board = b.id_board
			WHERE bm.fk_id_user = $1
			ORDER BY b.id_board`,
		"createList": `
			INSERT INTO public.list (fk_id_board, name, position)
			VALUES ($1, $2, $3)`,
		"createTask": `
			INSERT INTO public.task (fk_id_list, title, description, assigned_to, position, due_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id_task, fk_id_list, title, position`,
		"updateTaskPosition": `
			UPDATE public.task SET fk_id_list = $1, position = $2
			WHERE id_task = $3`,
	},
}
